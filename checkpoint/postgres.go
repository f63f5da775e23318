package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps envelopes in a single upsert table, one row per
// conversation. The table is created lazily on first use.
type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS interview_checkpoints (
  id TEXT PRIMARY KEY,
  payload JSONB NOT NULL,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
)`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Save(ctx context.Context, id string, env *Envelope) error {
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure checkpoint schema: %w", err)
	}
	data, err := env.Encode()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO interview_checkpoints (id, payload, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (id)
DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		id, string(data))
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (*Envelope, bool, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, false, fmt.Errorf("ensure checkpoint schema: %w", err)
	}
	var payload string
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM interview_checkpoints WHERE id = $1`, id)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load checkpoint: %w", err)
	}
	env, err := Decode([]byte(payload))
	if err != nil {
		return nil, false, err
	}
	return env, true, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure checkpoint schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM interview_checkpoints WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ Store = (*PostgresStore)(nil)
