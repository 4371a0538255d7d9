// Package postgres mirrors the event collection into Postgres for downstream
// consumers (dashboards, the public map). The JSON document stays the system
// of record; mirror failures never fail a run.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/endou0310-byte/rindo/internal/event"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// EventStoreConfig controls the Postgres connection pool for the mirror.
type EventStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// EventStore upserts canonical events by id.
type EventStore struct {
	pool  execCloser
	table string
}

// NewEventStore connects a pool using the provided config.
func NewEventStore(ctx context.Context, cfg EventStoreConfig) (*EventStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "reg_events"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &EventStore{pool: pool, table: table}, nil
}

// NewEventStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewEventStoreWithPool(pool execCloser, table string) (*EventStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "reg_events"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &EventStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *EventStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// UpsertEvents writes each event, replacing the stored row on id conflict.
// The whole collection is replayed every run; the upsert keeps that
// idempotent.
func (s *EventStore) UpsertEvents(ctx context.Context, events []event.Canonical) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("event store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	pref,
	pref_code,
	name,
	norm_name,
	status,
	reason,
	period_from,
	period_to,
	snippet,
	source_url,
	updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
) ON CONFLICT (id) DO UPDATE SET
	pref = EXCLUDED.pref,
	pref_code = EXCLUDED.pref_code,
	name = EXCLUDED.name,
	norm_name = EXCLUDED.norm_name,
	status = EXCLUDED.status,
	reason = EXCLUDED.reason,
	period_from = EXCLUDED.period_from,
	period_to = EXCLUDED.period_to,
	snippet = EXCLUDED.snippet,
	source_url = EXCLUDED.source_url,
	updated_at = EXCLUDED.updated_at`, s.table)

	for _, ev := range events {
		if ev.ID == "" {
			return fmt.Errorf("event id is required")
		}
		args := []any{
			ev.ID,
			ev.Pref,
			ev.PrefCode,
			ev.Name,
			ev.NormName,
			string(ev.Status),
			ev.Reason,
			ev.From,
			ev.To,
			ev.Snippet,
			ev.SourceURL,
			ev.UpdatedAt,
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert event %s: %w", ev.ID, err)
		}
	}
	return nil
}
