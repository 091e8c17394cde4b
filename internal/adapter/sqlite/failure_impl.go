package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/user/cardscout/internal/entity"
)

type failureRow struct {
	SiteName      string `db:"site_name"`
	ListingURL    string `db:"listing_url"`
	FailureReason string `db:"failure_reason"`
	AttemptCount  int    `db:"attempt_count"`
	LastAttemptAt int64  `db:"last_attempt_at"`
}

// FailureRepoImpl implements repository.FailureRepository on SQLite.
type FailureRepoImpl struct {
	db *sqlx.DB
}

func NewFailureRepo(db *sqlx.DB) *FailureRepoImpl {
	return &FailureRepoImpl{db: db}
}

// SaveOrUpdate increments attempt_count on conflict.
func (r *FailureRepoImpl) SaveOrUpdate(ctx context.Context, failure *entity.DiscoveryFailure) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO discovery_failures (site_name, listing_url, failure_reason, attempt_count, last_attempt_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (site_name) DO UPDATE SET
			listing_url = excluded.listing_url,
			failure_reason = excluded.failure_reason,
			attempt_count = discovery_failures.attempt_count + 1,
			last_attempt_at = excluded.last_attempt_at`,
		failure.SiteName, failure.ListingURL, failure.FailureReason, failure.LastAttemptAt.UTC().UnixMicro())
	return err
}

func (r *FailureRepoImpl) List(ctx context.Context) ([]*entity.DiscoveryFailure, error) {
	var rows []failureRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT site_name, listing_url, failure_reason, attempt_count, last_attempt_at
		FROM discovery_failures ORDER BY site_name`); err != nil {
		return nil, err
	}
	failures := make([]*entity.DiscoveryFailure, 0, len(rows))
	for _, row := range rows {
		failures = append(failures, &entity.DiscoveryFailure{
			SiteName:      row.SiteName,
			ListingURL:    row.ListingURL,
			FailureReason: row.FailureReason,
			AttemptCount:  row.AttemptCount,
			LastAttemptAt: time.UnixMicro(row.LastAttemptAt).UTC(),
		})
	}
	return failures, nil
}

func (r *FailureRepoImpl) Delete(ctx context.Context, siteName string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM discovery_failures WHERE site_name = ?`, siteName)
	return err
}
