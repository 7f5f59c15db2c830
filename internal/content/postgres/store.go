// Package postgres provides the Postgres-backed content store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/linkvault/internal/content"
	"github.com/JakeFAU/linkvault/internal/enrichment"
)

const defaultTable = "content_items"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// Store persists items in a single table. Tags are a text[] column and search
// uses Postgres full-text matching.
type Store struct {
	pool  pool
	table string
	now   func() time.Time
}

var _ content.Store = (*Store)(nil)

// NewStore connects a pool using cfg.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewStoreWithPool(p, cfg.Table)
}

// NewStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewStoreWithPool(p pool, table string) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{
		pool:  p,
		table: table,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Migrate creates the table and indexes when missing.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	type TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	tags TEXT[] NOT NULL DEFAULT '{}',
	preview_image_url TEXT NOT NULL DEFAULT '',
	platform TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_user_created_idx ON %[1]s (user_id, created_at DESC)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_tags_idx ON %[1]s USING GIN (tags)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_search_idx ON %[1]s USING GIN (%[2]s)`, s.table, searchVector),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.table, err)
		}
	}
	return nil
}

const (
	columns      = `id, user_id, type, title, description, body, url, tags, preview_image_url, platform, created_at, updated_at`
	searchVector = `to_tsvector('simple', title || ' ' || description || ' ' || body || ' ' || url)`
)

// Create inserts item and returns the stored row.
func (s *Store) Create(ctx context.Context, item content.Item) (content.Item, error) {
	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
RETURNING %s`, s.table, columns, columns)

	row := s.pool.QueryRow(ctx, query,
		item.ID,
		item.UserID,
		string(item.Type),
		item.Title,
		item.Description,
		item.Content,
		item.URL,
		content.NormalizeTags(item.Tags),
		item.PreviewImageURL,
		string(item.Platform),
		item.CreatedAt,
		item.UpdatedAt,
	)
	created, err := scanItem(row)
	if err != nil {
		return content.Item{}, fmt.Errorf("insert content: %w", err)
	}
	return created, nil
}

// FindByID returns the item with id.
func (s *Store) FindByID(ctx context.Context, id string) (content.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, columns, s.table)
	item, err := scanItem(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return content.Item{}, notFound(err, "select content")
	}
	return item, nil
}

// FindOneAndUpdate applies patch to the matching row. Nil patch fields keep
// their stored value. AddTags is appended in the same statement, keeping the
// first occurrence of each tag.
func (s *Store) FindOneAndUpdate(ctx context.Context, filter content.Filter, patch content.Patch) (content.Item, error) {
	query := fmt.Sprintf(`
UPDATE %s SET
	title = COALESCE($3, title),
	description = COALESCE($4, description),
	tags = CASE WHEN $9::text[] IS NULL THEN COALESCE($5::text[], tags) ELSE ARRAY(
		SELECT t FROM unnest(COALESCE($5::text[], tags) || $9::text[]) WITH ORDINALITY AS u(t, i)
		GROUP BY t ORDER BY min(i)
	) END,
	preview_image_url = COALESCE($6, preview_image_url),
	platform = COALESCE($7, platform),
	updated_at = $8
WHERE id = $1 AND user_id = $2
RETURNING %s`, s.table, columns)

	var tags []string
	if patch.Tags != nil {
		tags = content.NormalizeTags(patch.Tags)
	}
	var addTags []string
	if patch.AddTags != nil {
		addTags = content.NormalizeTags(patch.AddTags)
	}
	var platform *string
	if patch.Platform != nil {
		p := string(*patch.Platform)
		platform = &p
	}
	row := s.pool.QueryRow(ctx, query,
		filter.ID,
		filter.UserID,
		patch.Title,
		patch.Description,
		tags,
		patch.PreviewImageURL,
		platform,
		s.now(),
		addTags,
	)
	item, err := scanItem(row)
	if err != nil {
		return content.Item{}, notFound(err, "update content")
	}
	return item, nil
}

// Delete removes the matching row.
func (s *Store) Delete(ctx context.Context, filter content.Filter) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, s.table)
	tag, err := s.pool.Exec(ctx, query, filter.ID, filter.UserID)
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return enrichment.ErrNotFound
	}
	return nil
}

// Search matches query against the text columns and exact tags.
func (s *Store) Search(ctx context.Context, userID, query string, limit int) ([]content.Item, error) {
	sql := fmt.Sprintf(`
SELECT %s FROM %s
WHERE user_id = $1
  AND ($2 = '' OR %s @@ plainto_tsquery('simple', $2) OR lower($2) = ANY(tags))
ORDER BY created_at DESC, id DESC
LIMIT $3`, columns, s.table, searchVector)

	rows, err := s.pool.Query(ctx, sql, userID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search content: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (content.Item, error) {
		return scanItem(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan content: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (content.Item, error) {
	var (
		item     content.Item
		typ      string
		platform string
		tags     []string
	)
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&typ,
		&item.Title,
		&item.Description,
		&item.Content,
		&item.URL,
		&tags,
		&item.PreviewImageURL,
		&platform,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return content.Item{}, err //nolint:wrapcheck
	}
	item.Type = content.Type(typ)
	item.Platform = enrichment.Platform(platform)
	item.Tags = content.NormalizeTags(tags)
	return item, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return enrichment.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
