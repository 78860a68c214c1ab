package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"delivery-audit/internal/data"
	"delivery-audit/internal/logger"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS delivery_audit (
	id               BIGSERIAL PRIMARY KEY,
	run_id           TEXT NOT NULL,
	ticket_id        TEXT NOT NULL,
	filename         TEXT NOT NULL,
	handwritten_time TEXT,
	reference_time   TEXT,
	status           TEXT NOT NULL,
	diff_minutes     INTEGER,
	message          TEXT,
	anchor_text      TEXT,
	ocr_raw          TEXT,
	ocr_filtered     TEXT,
	processed_at     TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS delivery_references (
	ticket_id      TEXT PRIMARY KEY,
	reference_time TEXT NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PostgresStore persists audit records and serves reference times.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// SaveRecords inserts records in one batch, preserving their order in id.
func (s *PostgresStore) SaveRecords(ctx context.Context, records []data.Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO delivery_audit (
				run_id, ticket_id, filename, handwritten_time, reference_time,
				status, diff_minutes, message, anchor_text, ocr_raw, ocr_filtered, processed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			r.RunID, r.TicketID, r.Filename, optionalTime(r.HandwrittenTime), optionalTime(r.ReferenceTime),
			string(r.Status), r.DiffMinutes, r.Message, r.AnchorText, r.OCRRaw, r.OCRFiltered, r.ProcessedAt,
		)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting %d records: %w", len(records), err)
	}
	logger.DebugLog("[postgres]: stored %d records", len(records))
	return nil
}

func (s *PostgresStore) Lookup(ctx context.Context, ticketID string) (*data.TimeValue, error) {
	var raw string
	err := s.pool.QueryRow(ctx, `SELECT reference_time FROM delivery_references WHERE ticket_id = $1`, ticketID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying reference for %s: %w", ticketID, err)
	}
	tv, err := data.ParseClock(raw)
	if err != nil {
		return nil, fmt.Errorf("stored reference for %s: %w", ticketID, err)
	}
	return &tv, nil
}

func (s *PostgresStore) Put(ctx context.Context, ticketID string, t data.TimeValue) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO delivery_references (ticket_id, reference_time, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (ticket_id) DO UPDATE SET reference_time = EXCLUDED.reference_time, updated_at = now()`,
		ticketID, t.String())
	if err != nil {
		return fmt.Errorf("storing reference for %s: %w", ticketID, err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func optionalTime(t *data.TimeValue) *string {
	if t == nil {
		return nil
	}
	s := t.String()
	return &s
}
