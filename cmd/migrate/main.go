package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"quotedesk.org/internal/config"
	"quotedesk.org/internal/migrate"
)

func main() {
	status := flag.Bool("status", false, "list pending migrations instead of applying them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Database.DSN == "" {
		log.Fatalf("QD_PG_DSN is required")
	}

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mgr := migrate.NewManager(db, cfg.Database.MigrationsDir)

	if *status {
		pending, err := mgr.Pending(ctx)
		if err != nil {
			log.Fatalf("status: %v", err)
		}
		if len(pending) == 0 {
			fmt.Println("up to date")
			return
		}
		for _, name := range pending {
			fmt.Println("pending:", name)
		}
		return
	}

	if err := mgr.Up(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	fmt.Println("migrations applied")
}
