package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/internal/repository"
)

type inventoryRow struct {
	URL               string         `db:"url"`
	SiteName          string         `db:"site_name"`
	FirstDiscoveredAt int64          `db:"first_discovered_at"`
	LastVerifiedAt    int64          `db:"last_verified_at"`
	IsActive          bool           `db:"is_active"`
	Attributes        sql.NullString `db:"attributes"`
}

func (row inventoryRow) record() (*entity.InventoryRecord, error) {
	rec := &entity.InventoryRecord{
		URL:               row.URL,
		SiteName:          row.SiteName,
		FirstDiscoveredAt: time.UnixMicro(row.FirstDiscoveredAt).UTC(),
		LastVerifiedAt:    time.UnixMicro(row.LastVerifiedAt).UTC(),
		IsActive:          row.IsActive,
	}
	if row.Attributes.Valid && row.Attributes.String != "" {
		rec.Attributes = &entity.AttributeRecord{}
		if err := json.Unmarshal([]byte(row.Attributes.String), rec.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes of %s: %w", row.URL, err)
		}
	}
	return rec, nil
}

// InventoryRepoImpl implements repository.InventoryRepository on SQLite.
type InventoryRepoImpl struct {
	db *sqlx.DB
}

func NewInventoryRepo(db *sqlx.DB) *InventoryRepoImpl {
	return &InventoryRepoImpl{db: db}
}

// UpsertDiscovered runs insert-or-ignore then a monotonic update, one
// transaction per URL.
func (r *InventoryRepoImpl) UpsertDiscovered(ctx context.Context, siteName string, urls []string, ts time.Time) (entity.UpsertResult, error) {
	var result entity.UpsertResult
	sorted := append([]string(nil), urls...)
	sort.Strings(sorted)
	micros := ts.UTC().UnixMicro()

	for i, u := range sorted {
		if i > 0 && sorted[i-1] == u {
			continue
		}
		inserted, err := r.upsertOne(ctx, siteName, u, micros)
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

func (r *InventoryRepoImpl) upsertOne(ctx context.Context, siteName, url string, micros int64) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO card_inventory (url, site_name, first_discovered_at, last_verified_at, is_active)
		VALUES (?, ?, ?, ?, TRUE)`, url, siteName, micros, micros)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	inserted := n == 1
	if !inserted {
		if _, err := tx.ExecContext(ctx, `
			UPDATE card_inventory
			SET last_verified_at = MAX(last_verified_at, ?), is_active = TRUE
			WHERE url = ?`, micros, url); err != nil {
			return false, err
		}
	}
	return inserted, tx.Commit()
}

const selectColumns = `SELECT url, site_name, first_discovered_at, last_verified_at, is_active, attributes FROM card_inventory`

func (r *InventoryRepoImpl) Get(ctx context.Context, url string) (*entity.InventoryRecord, error) {
	var row inventoryRow
	if err := r.db.GetContext(ctx, &row, selectColumns+` WHERE url = ?`, url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return row.record()
}

func (r *InventoryRepoImpl) ListBySite(ctx context.Context, siteName string) ([]*entity.InventoryRecord, error) {
	return r.list(ctx, selectColumns+` WHERE site_name = ? ORDER BY url`, siteName)
}

func (r *InventoryRepoImpl) ListActive(ctx context.Context) ([]*entity.InventoryRecord, error) {
	return r.list(ctx, selectColumns+` WHERE is_active ORDER BY site_name, url`)
}

func (r *InventoryRepoImpl) list(ctx context.Context, query string, args ...any) ([]*entity.InventoryRecord, error) {
	var rows []inventoryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	records := make([]*entity.InventoryRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *InventoryRepoImpl) SaveAttributes(ctx context.Context, url string, attrs *entity.AttributeRecord) error {
	payload, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE card_inventory SET attributes = ? WHERE url = ?`, string(payload), url)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *InventoryRepoImpl) MarkStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE card_inventory SET is_active = FALSE WHERE is_active AND last_verified_at < ?`,
		cutoff.UTC().UnixMicro())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *InventoryRepoImpl) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
