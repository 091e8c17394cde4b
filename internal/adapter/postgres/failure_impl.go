package postgres

import (
	"context"

	"github.com/user/cardscout/internal/entity"
)

// FailureRepoImpl provides a concrete implementation for the FailureRepository interface using PostgreSQL.
type FailureRepoImpl struct {
	db DB
}

// NewFailureRepo creates a new instance of FailureRepoImpl.
func NewFailureRepo(db DB) *FailureRepoImpl {
	return &FailureRepoImpl{db: db}
}

// SaveOrUpdate creates or updates the failure record of a site.
// It increments the attempt_count on conflict.
func (r *FailureRepoImpl) SaveOrUpdate(ctx context.Context, failure *entity.DiscoveryFailure) error {
	query := `
		INSERT INTO discovery_failures (site_name, listing_url, failure_reason, attempt_count, last_attempt_at)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (site_name) DO UPDATE SET
			listing_url = EXCLUDED.listing_url,
			failure_reason = EXCLUDED.failure_reason,
			attempt_count = discovery_failures.attempt_count + 1,
			last_attempt_at = EXCLUDED.last_attempt_at;
	`
	_, err := r.db.Exec(ctx, query,
		failure.SiteName,
		failure.ListingURL,
		failure.FailureReason,
		failure.LastAttemptAt.UTC(),
	)
	return err
}

// List retrieves all failure records ordered by site.
func (r *FailureRepoImpl) List(ctx context.Context) ([]*entity.DiscoveryFailure, error) {
	query := `
		SELECT site_name, listing_url, failure_reason, attempt_count, last_attempt_at
		FROM discovery_failures
		ORDER BY site_name ASC;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []*entity.DiscoveryFailure
	for rows.Next() {
		var f entity.DiscoveryFailure
		if err := rows.Scan(
			&f.SiteName,
			&f.ListingURL,
			&f.FailureReason,
			&f.AttemptCount,
			&f.LastAttemptAt,
		); err != nil {
			return nil, err
		}
		failures = append(failures, &f)
	}

	return failures, rows.Err()
}

// Delete removes a site's failure record, typically after a successful pass.
func (r *FailureRepoImpl) Delete(ctx context.Context, siteName string) error {
	query := `DELETE FROM discovery_failures WHERE site_name = $1;`
	_, err := r.db.Exec(ctx, query, siteName)
	return err
}
