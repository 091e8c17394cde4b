package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/internal/repository"
	"github.com/user/cardscout/pkg/utils"
)

var (
	ErrInvalidURL        = errors.New("url must be absolute http(s)")
	ErrInvalidStaleAfter = errors.New("stale-after must be positive")
)

// InventoryManager defines the read and housekeeping side of the inventory.
type InventoryManager interface {
	// Lookup returns the record of rawURL after normalizing it the way
	// discovery does. It returns repository.ErrNotFound for unknown URLs.
	Lookup(ctx context.Context, rawURL string) (*entity.InventoryRecord, error)
	ListBySite(ctx context.Context, siteName string) ([]*entity.InventoryRecord, error)
	ListActive(ctx context.Context) ([]*entity.InventoryRecord, error)
	// Housekeep marks records not verified within staleAfter as inactive.
	Housekeep(ctx context.Context, staleAfter time.Duration) (int64, error)
	Failures(ctx context.Context) ([]*entity.DiscoveryFailure, error)
	// LatestRun returns repository.ErrNotFound when no summary is available.
	LatestRun(ctx context.Context) (*entity.RunSummary, error)
	Ping(ctx context.Context) error
}

type inventoryUseCase struct {
	inventory repository.InventoryRepository
	failures  repository.FailureRepository
	summaries repository.SummaryRepository
	now       func() time.Time
}

// NewInventoryManager creates a new InventoryManager use case. failures and
// summaries may be nil.
func NewInventoryManager(
	inventory repository.InventoryRepository,
	failures repository.FailureRepository,
	summaries repository.SummaryRepository,
) InventoryManager {
	return &inventoryUseCase{
		inventory: inventory,
		failures:  failures,
		summaries: summaries,
		now:       time.Now,
	}
}

func (uc *inventoryUseCase) Lookup(ctx context.Context, rawURL string) (*entity.InventoryRecord, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return uc.inventory.Get(ctx, utils.NormalizeURL(u))
}

func (uc *inventoryUseCase) ListBySite(ctx context.Context, siteName string) ([]*entity.InventoryRecord, error) {
	return uc.inventory.ListBySite(ctx, siteName)
}

func (uc *inventoryUseCase) ListActive(ctx context.Context) ([]*entity.InventoryRecord, error) {
	return uc.inventory.ListActive(ctx)
}

func (uc *inventoryUseCase) Housekeep(ctx context.Context, staleAfter time.Duration) (int64, error) {
	if staleAfter <= 0 {
		return 0, ErrInvalidStaleAfter
	}
	n, err := uc.inventory.MarkStale(ctx, uc.now().UTC().Add(-staleAfter))
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale records: %w", err)
	}
	return n, nil
}

func (uc *inventoryUseCase) Failures(ctx context.Context) ([]*entity.DiscoveryFailure, error) {
	if uc.failures == nil {
		return nil, nil
	}
	return uc.failures.List(ctx)
}

func (uc *inventoryUseCase) LatestRun(ctx context.Context) (*entity.RunSummary, error) {
	if uc.summaries == nil {
		return nil, repository.ErrNotFound
	}
	return uc.summaries.Latest(ctx)
}

func (uc *inventoryUseCase) Ping(ctx context.Context) error {
	return uc.inventory.Ping(ctx)
}
