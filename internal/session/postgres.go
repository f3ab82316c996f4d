package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PG implements Store on PostgreSQL. One row per session; the upsert makes
// Save atomic.
type PG struct {
	db *sql.DB
}

var _ Store = (*PG)(nil)

func NewPG(db *sql.DB) *PG {
	return &PG{db: db}
}

// EnsureSchema creates the sessions table. The only local schema this service
// owns, so no migration manager is involved.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		create table if not exists sessions (
			key        text primary key,
			record     jsonb not null,
			updated_at timestamptz not null default now()
		)`)
	return err
}

func (s *PG) Save(ctx context.Context, key string, sess Session) error {
	data, err := encode(sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`insert into sessions(key, record, updated_at) values($1, $2, now())
		 on conflict (key) do update set record = excluded.record, updated_at = now()`,
		key, data,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *PG) Load(ctx context.Context, key string) (Session, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`select record from sessions where key = $1`, key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	sess, ok := decodeOrEmpty(ctx, key, data)
	return sess, ok, nil
}

func (s *PG) Clear(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `delete from sessions where key = $1`, key); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
