package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"quotedesk.org/internal/billing"
	"quotedesk.org/internal/config"
	"quotedesk.org/internal/entitlement"
	"quotedesk.org/internal/httpapi"
	"quotedesk.org/internal/identity"
	"quotedesk.org/internal/obs"
	"quotedesk.org/internal/session"
)

var version = "0.3.1"

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Identity store: postgres when a DSN is configured, in-memory otherwise.
	var (
		db         *sql.DB
		identities identity.Store
	)
	if cfg.Database.DSN != "" {
		db, err = sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		identities = identity.NewPG(db)
	} else {
		identities = identity.NewMemory()
	}

	sessions, err := session.New(cfg.Auth.Secret,
		session.WithTTL(cfg.Auth.SessionTTL),
		session.WithSecure(cfg.Production()),
	)
	if err != nil {
		log.Fatalf("session codec: %v", err)
	}

	billingClient := billing.NewClient(billing.Config{
		BaseURL:             cfg.Billing.BaseURL,
		SecretKey:           cfg.Billing.SecretKey,
		SubscriptionPriceID: cfg.Billing.SubscriptionPriceID,
		LifetimePriceID:     cfg.Billing.LifetimePriceID,
		SuccessURL:          cfg.Billing.SuccessURL,
		CancelURL:           cfg.Billing.CancelURL,
	})
	resolver := entitlement.NewResolver(billingClient)

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version,
		identities, sessions, resolver, billingClient, cfg.Auth.DemoMode)
	api.SetRateLimit(cfg.RateBurst, cfg.RatePerSec)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting quotedesk-api %s on %s (demo_mode=%v)", version, srv.Addr, cfg.Auth.DemoMode)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
