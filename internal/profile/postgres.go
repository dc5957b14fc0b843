package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps each profile as a JSONB document in user_profiles.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Merge upserts the record; top-level keys in fields overwrite stored ones.
func (s *PostgresStore) Merge(ctx context.Context, userID string, fields Fields) error {
	doc, err := json.Marshal(normalize(fields))
	if err != nil {
		return fmt.Errorf("encoding profile %s: %w", userID, err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO user_profiles (user_id, doc, updated_at) VALUES ($1, $2::jsonb, NOW())
		 ON CONFLICT (user_id) DO UPDATE
		 SET doc = user_profiles.doc || EXCLUDED.doc, updated_at = NOW()`,
		userID, string(doc))
	if err != nil {
		return fmt.Errorf("merging profile %s: %w", userID, err)
	}
	return nil
}

// Get reads the stored document.
func (s *PostgresStore) Get(ctx context.Context, userID string) (Fields, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM user_profiles WHERE user_id=$1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", userID, err)
	}
	f := Fields{}
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decoding profile %s: %w", userID, err)
	}
	return f, nil
}

// normalize renders timestamps as RFC 3339 text.
func normalize(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		if t, ok := v.(time.Time); ok {
			out[k] = t.UTC().Format(time.RFC3339Nano)
			continue
		}
		out[k] = v
	}
	return out
}
