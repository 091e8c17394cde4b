package repository

import (
	"context"

	"github.com/user/cardscout/internal/entity"
)

// FailureRepository keeps track of sites whose last discovery pass failed.
type FailureRepository interface {
	// SaveOrUpdate creates or updates the failure record of a site.
	// It increments the attempt count on conflict.
	SaveOrUpdate(ctx context.Context, failure *entity.DiscoveryFailure) error
	// List returns all recorded failures ordered by site.
	List(ctx context.Context) ([]*entity.DiscoveryFailure, error)
	// Delete removes a site's failure record, typically after a successful pass.
	Delete(ctx context.Context, siteName string) error
}
