package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"NewsRelay/internal/ports"
	"NewsRelay/internal/state"
)

// PostgresStore keeps the relay state as a single jsonb document per relay
// name. It exists for deployments where the working directory is not
// durable; a missing row loads as empty state.
type PostgresStore struct {
	db       *sql.DB
	relay    string
	capacity int
	builder  sq.StatementBuilderType
}

var _ ports.StateStore = (*PostgresStore)(nil)

// OpenPostgresStore connects and verifies the DSN.
func OpenPostgresStore(ctx context.Context, dsn, relay string, capacity int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db, relay, capacity), nil
}

// NewPostgresStore wires an existing sql.DB.
func NewPostgresStore(db *sql.DB, relay string, capacity int) *PostgresStore {
	if capacity <= 0 {
		capacity = state.DefaultCapacity
	}
	return &PostgresStore{
		db:       db,
		relay:    relay,
		capacity: capacity,
		builder:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Load fetches the relay's state document.
func (p *PostgresStore) Load(ctx context.Context) (*state.State, error) {
	query, args, err := p.builder.
		Select("document").
		From("relay_state").
		Where(sq.Eq{"relay": p.relay}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var raw []byte
	err = p.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return state.New(p.capacity), nil
	}
	if err != nil {
		return nil, fmt.Errorf("query state: %w", err)
	}

	st, err := state.Decode(raw, p.capacity)
	if err != nil {
		return nil, fmt.Errorf("relay %s: %w", p.relay, err)
	}
	return st, nil
}

// Save upserts the state document for this relay.
func (p *PostgresStore) Save(ctx context.Context, st *state.State) error {
	raw, err := state.Encode(st)
	if err != nil {
		return err
	}

	query, args, err := p.builder.
		Insert("relay_state").
		Columns("relay", "document").
		Values(p.relay, raw).
		Suffix("ON CONFLICT (relay) DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
