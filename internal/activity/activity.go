// Package activity archives registration activity in Postgres. The archive
// is observability only; the catalog store never reads it.
package activity

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Record is one archived registration or unregistration.
type Record struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	UserID   int64     `json:"user_id"`
	EventID  int64     `json:"event_id"`
	Title    string    `json:"title"`
	At       time.Time `json:"at"`
	Archived time.Time `json:"archived_at"`
}

// Repository persists activity records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository opens a connection and ensures the schema exists.
func NewRepository(connString string) (*Repository, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, err
	}
	r := &Repository{db: db}
	if err := r.migrate(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS registration_activity (
			id          TEXT PRIMARY KEY,
			type        TEXT NOT NULL,
			user_id     BIGINT NOT NULL,
			event_id    BIGINT NOT NULL,
			title       TEXT NOT NULL DEFAULT '',
			occurred_at TIMESTAMPTZ NOT NULL,
			archived_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// Close closes the underlying connection.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Insert archives one record, assigning an ID when absent.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO registration_activity (id, type, user_id, event_id, title, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING archived_at
	`, rec.ID, rec.Type, rec.UserID, rec.EventID, rec.Title, rec.At)
	if err := row.Scan(&rec.Archived); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Recent returns the newest records, most recent first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, user_id, event_id, title, occurred_at, archived_at
		FROM registration_activity
		ORDER BY occurred_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.UserID, &rec.EventID, &rec.Title, &rec.At, &rec.Archived); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
