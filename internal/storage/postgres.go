package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/deusflow/dailydigest/internal/digest"
)

// PostgresStore persists digests and their articles. A digest row is marked
// published only after every one of its articles is written, in a single
// transaction.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenPostgres connects, pings and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewPostgresStore(db, logger)
	if err := s.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Info("postgres store ready")
	return s, nil
}

func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

const schema = `
CREATE TABLE IF NOT EXISTS digests (
	id SERIAL PRIMARY KEY,
	run_id UUID UNIQUE NOT NULL,
	edition VARCHAR(20) NOT NULL,
	digest_date DATE NOT NULL,
	run_at TIMESTAMPTZ NOT NULL,
	is_published BOOLEAN NOT NULL DEFAULT FALSE,
	published_at TIMESTAMPTZ,
	stats JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_digests_date_edition ON digests(digest_date, edition);

CREATE TABLE IF NOT EXISTS articles (
	id SERIAL PRIMARY KEY,
	digest_id INTEGER NOT NULL REFERENCES digests(id) ON DELETE CASCADE,
	category VARCHAR(100) NOT NULL,
	position INTEGER NOT NULL,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	source VARCHAR(100) NOT NULL,
	subcategory VARCHAR(100),
	description TEXT,
	published_at TIMESTAMPTZ,
	quality_score DOUBLE PRECISION NOT NULL,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (digest_id, category, url)
);

CREATE INDEX IF NOT EXISTS idx_articles_digest ON articles(digest_id);
`

func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const (
	upsertDigestSQL = `
		INSERT INTO digests (run_id, edition, digest_date, run_at, stats)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE SET stats = EXCLUDED.stats
		RETURNING id, is_published`

	insertArticleSQL = `
		INSERT INTO articles (digest_id, category, position, title, url, source, subcategory, description, published_at, quality_score, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (digest_id, category, url) DO NOTHING`

	markPublishedSQL = `UPDATE digests SET is_published = TRUE, published_at = NOW() WHERE id = $1`
)

type articleMetadata struct {
	Author   string `json:"author,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Publish stores d. Publishing the same run twice is a no-op once the first
// attempt committed; a failed attempt leaves nothing behind.
func (s *PostgresStore) Publish(ctx context.Context, d *digest.Digest) (err error) {
	stats, err := json.Marshal(d.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var (
		digestID  int64
		published bool
	)
	row := tx.QueryRowContext(ctx, upsertDigestSQL, d.RunID, d.Edition, d.RunAt.Format("2006-01-02"), d.RunAt, stats)
	if err = row.Scan(&digestID, &published); err != nil {
		return fmt.Errorf("insert digest: %w", err)
	}
	if published {
		s.logger.Info("digest already published", "run_id", d.RunID)
		return tx.Commit()
	}

	written := 0
	for _, cat := range d.Categories {
		for pos, a := range cat.Articles {
			meta, merr := json.Marshal(articleMetadata{Author: a.Author, ImageURL: a.ImageURL})
			if merr != nil {
				err = fmt.Errorf("marshal metadata: %w", merr)
				return err
			}
			var publishedAt sql.NullTime
			if a.PublishedAt != nil {
				publishedAt = sql.NullTime{Time: *a.PublishedAt, Valid: true}
			}
			if _, err = tx.ExecContext(ctx, insertArticleSQL,
				digestID, cat.Name, pos+1, a.Title, a.URL, a.Source, a.Subcategory,
				a.Description, publishedAt, a.Quality, meta,
			); err != nil {
				return fmt.Errorf("insert article %s in %s: %w", a.URL, cat.Name, err)
			}
			written++
		}
	}

	if _, err = tx.ExecContext(ctx, markPublishedSQL, digestID); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("digest published", "run_id", d.RunID, "digest_id", digestID, "articles", written)
	return nil
}

// IsPublished reports whether the run has a committed, published digest.
func (s *PostgresStore) IsPublished(ctx context.Context, runID string) (bool, error) {
	var published bool
	err := s.db.QueryRowContext(ctx, `SELECT is_published FROM digests WHERE run_id = $1`, runID).Scan(&published)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query digest: %w", err)
	}
	return published, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
