package identity

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"quotedesk.org/internal/ids"
)

const uniqueViolation = "23505"

var _ Store = (*PG)(nil)

// PG implements Store using PostgreSQL.
type PG struct {
	db *sql.DB
}

func NewPG(db *sql.DB) *PG {
	return &PG{db: db}
}

const identityColumns = `id, email, name, password_hash, subscription_status, subscription_expires, created_at, updated_at`

func (s *PG) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+identityColumns+` from users where email=$1`, NormalizeEmail(email))
	return scanIdentity(row)
}

func (s *PG) Create(ctx context.Context, ident *Identity) error {
	email := NormalizeEmail(ident.Email)
	if email == "" {
		return ErrInvalidInput
	}
	if ident.ID == "" {
		ident.ID = ids.New()
	}
	if ident.SubscriptionStatus == "" {
		ident.SubscriptionStatus = SubscriptionNone
	}
	row := s.db.QueryRowContext(ctx,
		`insert into users(id, email, name, password_hash, subscription_status)
		 values($1,$2,$3,$4,$5)
		 returning created_at, updated_at`,
		ident.ID, email, ident.Name, ident.PasswordHash, ident.SubscriptionStatus,
	)
	if err := row.Scan(&ident.CreatedAt, &ident.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadyExists
		}
		return err
	}
	ident.Email = email
	return nil
}

// FindOrCreate relies on "on conflict do nothing" so two concurrent calls for
// the same unseen email race at the database, not in application code. The
// loser of the insert reads back the winner's row.
func (s *PG) FindOrCreate(ctx context.Context, ident *Identity) (*Identity, error) {
	email := NormalizeEmail(ident.Email)
	if email == "" {
		return nil, ErrInvalidInput
	}
	id := ident.ID
	if id == "" {
		id = ids.New()
	}
	status := ident.SubscriptionStatus
	if status == "" {
		status = SubscriptionNone
	}
	row := s.db.QueryRowContext(ctx,
		`insert into users(id, email, name, password_hash, subscription_status)
		 values($1,$2,$3,$4,$5)
		 on conflict (email) do nothing
		 returning `+identityColumns,
		id, email, ident.Name, ident.PasswordHash, status,
	)
	created, err := scanIdentity(row)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.FindByEmail(ctx, email)
}

func (s *PG) UpdateSubscription(ctx context.Context, email string, status SubscriptionStatus, expires *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set subscription_status=$2, subscription_expires=$3, updated_at=now() where email=$1`,
		NormalizeEmail(email), status, expires,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanIdentity(row *sql.Row) (*Identity, error) {
	var (
		ident   Identity
		expires sql.NullTime
	)
	err := row.Scan(
		&ident.ID, &ident.Email, &ident.Name, &ident.PasswordHash,
		&ident.SubscriptionStatus, &expires, &ident.CreatedAt, &ident.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		ident.SubscriptionExpires = &t
	}
	return &ident, nil
}
