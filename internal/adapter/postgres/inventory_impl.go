package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/internal/repository"
)

//go:embed schema.sql
var schemaSQL string

// DB is the subset of *pgxpool.Pool used by the repositories.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// EnsureSchema creates the inventory tables if they do not exist.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// InventoryRepoImpl provides a concrete implementation for the InventoryRepository interface using PostgreSQL.
type InventoryRepoImpl struct {
	db DB
}

// NewInventoryRepo creates a new instance of InventoryRepoImpl.
func NewInventoryRepo(db DB) *InventoryRepoImpl {
	return &InventoryRepoImpl{db: db}
}

const upsertQuery = `
	INSERT INTO card_inventory (url, site_name, first_discovered_at, last_verified_at, is_active)
	VALUES ($1, $2, $3, $3, TRUE)
	ON CONFLICT (url) DO UPDATE SET
		last_verified_at = GREATEST(card_inventory.last_verified_at, EXCLUDED.last_verified_at),
		is_active = TRUE
	RETURNING (xmax = 0) AS inserted;
`

// UpsertDiscovered applies each URL in its own transaction. site_name and
// first_discovered_at are never touched on conflict.
func (r *InventoryRepoImpl) UpsertDiscovered(ctx context.Context, siteName string, urls []string, ts time.Time) (entity.UpsertResult, error) {
	var result entity.UpsertResult
	for _, u := range uniqueSorted(urls) {
		inserted, err := r.upsertOne(ctx, siteName, u, ts)
		if err != nil {
			return result, fmt.Errorf("failed to upsert %s: %w", u, err)
		}
		if inserted {
			result.Inserted++
			result.NewURLs = append(result.NewURLs, u)
		} else {
			result.Reverified++
		}
	}
	return result, nil
}

func (r *InventoryRepoImpl) upsertOne(ctx context.Context, siteName, url string, ts time.Time) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var inserted bool
	if err := tx.QueryRow(ctx, upsertQuery, url, siteName, ts.UTC()).Scan(&inserted); err != nil {
		return false, err
	}
	return inserted, tx.Commit(ctx)
}

const selectColumns = `url, site_name, first_discovered_at, last_verified_at, is_active, attributes`

// Get retrieves the inventory record of a URL.
func (r *InventoryRepoImpl) Get(ctx context.Context, url string) (*entity.InventoryRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM card_inventory WHERE url = $1;`, url)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return rec, err
}

// ListBySite retrieves all records attributed to a site.
func (r *InventoryRepoImpl) ListBySite(ctx context.Context, siteName string) ([]*entity.InventoryRecord, error) {
	return r.list(ctx, `SELECT `+selectColumns+` FROM card_inventory WHERE site_name = $1 ORDER BY url;`, siteName)
}

// ListActive retrieves all active records.
func (r *InventoryRepoImpl) ListActive(ctx context.Context) ([]*entity.InventoryRecord, error) {
	return r.list(ctx, `SELECT `+selectColumns+` FROM card_inventory WHERE is_active ORDER BY site_name, url;`)
}

func (r *InventoryRepoImpl) list(ctx context.Context, query string, args ...any) ([]*entity.InventoryRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*entity.InventoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveAttributes stores the attribute payload of an existing record.
func (r *InventoryRepoImpl) SaveAttributes(ctx context.Context, url string, attrs *entity.AttributeRecord) error {
	payload, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `UPDATE card_inventory SET attributes = $2 WHERE url = $1;`, url, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkStale deactivates records that were not verified since cutoff.
func (r *InventoryRepoImpl) MarkStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE card_inventory SET is_active = FALSE WHERE is_active AND last_verified_at < $1;`,
		cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *InventoryRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanRecord(row pgx.Row) (*entity.InventoryRecord, error) {
	var rec entity.InventoryRecord
	var attrsJSON []byte
	if err := row.Scan(
		&rec.URL,
		&rec.SiteName,
		&rec.FirstDiscoveredAt,
		&rec.LastVerifiedAt,
		&rec.IsActive,
		&attrsJSON,
	); err != nil {
		return nil, err
	}
	if len(attrsJSON) > 0 {
		rec.Attributes = &entity.AttributeRecord{}
		if err := json.Unmarshal(attrsJSON, rec.Attributes); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func uniqueSorted(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
