package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vigilx/pricewatch/internal/domain"
)

// Postgres keeps one row per user with the tracking list as a JSONB document,
// so ReplaceTracking is a single UPDATE and AppendItem a single JSONB concat.
type Postgres struct {
	pool *pgxpool.Pool
}

// PostgresOptions configures the postgres-backed store.
type PostgresOptions struct {
	DSN      string
	MaxConns int
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
    chat_id               BIGINT PRIMARY KEY,
    name                  TEXT NOT NULL DEFAULT '',
    total_refunds_claimed BIGINT NOT NULL DEFAULT 0,
    tracking              JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgres opens a connection pool, verifies connectivity and ensures the
// schema exists.
func NewPostgres(ctx context.Context, opts PostgresOptions) (*Postgres, error) {
	if opts.DSN == "" {
		return nil, errors.New("postgres DSN is required")
	}

	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres DSN: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT chat_id, name, total_refunds_claimed, tracking, created_at, updated_at
		FROM users`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (p *Postgres) GetUser(ctx context.Context, chatID int64) (domain.User, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT chat_id, name, total_refunds_claimed, tracking, created_at, updated_at
		FROM users WHERE chat_id = $1`, chatID)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (p *Postgres) UpsertUser(ctx context.Context, chatID int64, name string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO users (chat_id, name) VALUES ($1, $2)
		ON CONFLICT (chat_id) DO NOTHING`, chatID, name)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", chatID, err)
	}
	return nil
}

func (p *Postgres) AppendItem(ctx context.Context, chatID int64, item domain.TrackedItem) error {
	doc, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE users
		SET tracking = tracking || $2::jsonb, updated_at = now()
		WHERE chat_id = $1`, chatID, string(doc))
	if err != nil {
		return fmt.Errorf("append item for %d: %w", chatID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (p *Postgres) ReplaceTracking(ctx context.Context, chatID int64, items []domain.TrackedItem) error {
	doc, err := encodeTracking(items)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE users
		SET tracking = $2::jsonb, updated_at = now()
		WHERE chat_id = $1`, chatID, string(doc))
	if err != nil {
		return fmt.Errorf("replace tracking for %d: %w", chatID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close(context.Context) error {
	p.pool.Close()
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u   domain.User
		doc []byte
	)
	if err := row.Scan(&u.ChatID, &u.Name, &u.TotalRefundsClaimed, &doc, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	tracking, err := decodeTracking(doc)
	if err != nil {
		return domain.User{}, fmt.Errorf("user %d: %w", u.ChatID, err)
	}
	u.Tracking = tracking
	u.Normalize()
	return u, nil
}

// encodeTracking and decodeTracking pin the JSONB document layout; the shape
// is validated on read rather than trusted.
func encodeTracking(items []domain.TrackedItem) ([]byte, error) {
	if items == nil {
		items = []domain.TrackedItem{}
	}
	doc, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode tracking: %w", err)
	}
	return doc, nil
}

func decodeTracking(doc []byte) ([]domain.TrackedItem, error) {
	if len(doc) == 0 {
		return []domain.TrackedItem{}, nil
	}
	var items []domain.TrackedItem
	if err := json.Unmarshal(doc, &items); err != nil {
		return nil, fmt.Errorf("decode tracking document: %w", err)
	}
	if items == nil {
		items = []domain.TrackedItem{}
	}
	return items, nil
}
