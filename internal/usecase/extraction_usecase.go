package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/user/cardscout/internal/discovery"
	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/internal/extraction"
	"github.com/user/cardscout/internal/repository"
	"github.com/user/cardscout/pkg/metrics"
)

// ExtractionConfig bounds an extraction batch.
type ExtractionConfig struct {
	FetchTimeout time.Duration
	// TTL skips URLs extracted more recently than this. Zero disables markers.
	TTL time.Duration
	// Interval paces consecutive product page fetches.
	Interval time.Duration
}

// ExtractionOptions selects the URLs of one batch.
type ExtractionOptions struct {
	// Site restricts the batch to one site; empty means all.
	Site string
	// Pending drains the pending-extraction queue instead of listing active records.
	Pending bool
	// Limit caps the number of attempted URLs; zero means no cap.
	Limit int
}

// ExtractionFailure is one URL that could not be extracted.
type ExtractionFailure struct {
	URL    string `json:"url"`
	Site   string `json:"site"`
	Reason string `json:"reason"`
}

// ExtractionReport summarizes a batch. Failures never abort a batch.
type ExtractionReport struct {
	Attempted int                 `json:"attempted"`
	Extracted int                 `json:"extracted"`
	Skipped   int                 `json:"skipped"`
	Failures  []ExtractionFailure `json:"failures,omitempty"`
}

// Extractor defines the interface for attribute extraction batches.
type Extractor interface {
	Run(ctx context.Context, opts ExtractionOptions) (*ExtractionReport, error)
}

// ExtractionDeps are the collaborators of the extraction use case. Markers and
// Queue are optional.
type ExtractionDeps struct {
	Fetchers  Fetchers
	Inventory repository.InventoryRepository
	Markers   repository.ExtractionMarkerRepository
	Queue     repository.QueueRepository
	Parsers   extraction.Registry
}

type extractionUseCase struct {
	deps   ExtractionDeps
	cfg    ExtractionConfig
	sites  map[string]entity.SiteDefinition
	logger *zap.Logger
}

// NewExtractionUseCase creates a new instance of the extraction use case.
func NewExtractionUseCase(deps ExtractionDeps, sites []*discovery.Site, cfg ExtractionConfig, logger *zap.Logger) Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	bySite := make(map[string]entity.SiteDefinition, len(sites))
	for _, s := range sites {
		bySite[s.Name()] = s.Definition
	}
	return &extractionUseCase{deps: deps, cfg: cfg, sites: bySite, logger: logger}
}

func (uc *extractionUseCase) Run(ctx context.Context, opts ExtractionOptions) (*ExtractionReport, error) {
	report := &ExtractionReport{}

	next, err := uc.source(ctx, opts)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if uc.cfg.Interval > 0 {
		limit = rate.Every(uc.cfg.Interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	// Pending URLs of other sites go back on the queue once the batch ends.
	var requeue []string
	defer func() {
		if len(requeue) == 0 {
			return
		}
		if err := uc.deps.Queue.Push(context.WithoutCancel(ctx), requeue...); err != nil {
			uc.logger.Warn("failed to requeue pending urls", zap.Int("count", len(requeue)), zap.Error(err))
		}
	}()

	for opts.Limit == 0 || report.Attempted < opts.Limit {
		rec, err := next()
		if errors.Is(err, errSourceDone) {
			break
		}
		if err != nil {
			return report, err
		}
		if opts.Site != "" && rec.SiteName != opts.Site {
			if opts.Pending {
				requeue = append(requeue, rec.URL)
			}
			continue
		}

		skip, err := uc.skip(ctx, rec)
		if err != nil {
			if opts.Pending {
				requeue = append(requeue, rec.URL)
			}
			return report, err
		}
		if skip {
			report.Skipped++
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			if opts.Pending {
				requeue = append(requeue, rec.URL)
			}
			return report, err
		}
		report.Attempted++
		if err := uc.extractOne(ctx, rec); err != nil {
			metrics.ExtractionsTotal.WithLabelValues(rec.SiteName, "failure").Inc()
			uc.logger.Warn("attribute extraction failed", zap.String("url", rec.URL), zap.String("site", rec.SiteName), zap.Error(err))
			report.Failures = append(report.Failures, ExtractionFailure{URL: rec.URL, Site: rec.SiteName, Reason: err.Error()})
			continue
		}
		metrics.ExtractionsTotal.WithLabelValues(rec.SiteName, "success").Inc()
		report.Extracted++
	}

	if uc.deps.Queue != nil {
		if size, err := uc.deps.Queue.Size(ctx); err == nil {
			metrics.PendingQueueSize.Set(float64(size))
		}
	}
	uc.logger.Info("extraction batch finished",
		zap.Int("attempted", report.Attempted),
		zap.Int("extracted", report.Extracted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failures)),
	)
	return report, nil
}

var errSourceDone = errors.New("no more records")

// source returns an iterator over the records of the batch.
func (uc *extractionUseCase) source(ctx context.Context, opts ExtractionOptions) (func() (*entity.InventoryRecord, error), error) {
	if opts.Pending {
		if uc.deps.Queue == nil {
			return nil, errors.New("pending extraction requires a queue")
		}
		return func() (*entity.InventoryRecord, error) {
			for {
				url, err := uc.deps.Queue.Pop(ctx)
				if errors.Is(err, repository.ErrQueueEmpty) {
					return nil, errSourceDone
				}
				if err != nil {
					return nil, fmt.Errorf("failed to pop pending url: %w", err)
				}
				rec, err := uc.deps.Inventory.Get(ctx, url)
				if errors.Is(err, repository.ErrNotFound) {
					uc.logger.Warn("pending url is not in the inventory", zap.String("url", url))
					continue
				}
				return rec, err
			}
		}, nil
	}

	var (
		records []*entity.InventoryRecord
		err     error
	)
	if opts.Site != "" {
		records, err = uc.deps.Inventory.ListBySite(ctx, opts.Site)
	} else {
		records, err = uc.deps.Inventory.ListActive(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	i := 0
	return func() (*entity.InventoryRecord, error) {
		for i < len(records) {
			rec := records[i]
			i++
			if rec.IsActive {
				return rec, nil
			}
		}
		return nil, errSourceDone
	}, nil
}

func (uc *extractionUseCase) skip(ctx context.Context, rec *entity.InventoryRecord) (bool, error) {
	if uc.deps.Parsers.For(rec.SiteName) == nil {
		return true, nil
	}
	if uc.deps.Markers == nil || uc.cfg.TTL <= 0 {
		return false, nil
	}
	done, err := uc.deps.Markers.IsExtracted(ctx, rec.URL)
	if err != nil {
		uc.logger.Warn("failed to read extraction marker", zap.String("url", rec.URL), zap.Error(err))
		return false, nil
	}
	return done, nil
}

func (uc *extractionUseCase) extractOne(ctx context.Context, rec *entity.InventoryRecord) error {
	def, ok := uc.sites[rec.SiteName]
	if !ok {
		return fmt.Errorf("site %q is not configured", rec.SiteName)
	}
	fetcher, _, err := uc.deps.Fetchers.For(def)
	if err != nil {
		return err
	}

	marker := def.Attributes.ReadinessMarker
	if marker == "" {
		marker = "body"
	}
	content, err := fetcher.Fetch(ctx, rec.URL, marker, uc.cfg.FetchTimeout)
	if err != nil {
		return fmt.Errorf("fetch product page: %w", err)
	}

	attrs, err := extraction.Extract(content, uc.deps.Parsers.For(rec.SiteName))
	if err != nil {
		var ee *extraction.ExtractionError
		if errors.As(err, &ee) {
			ee.URL = rec.URL
		}
		return err
	}

	if err := uc.deps.Inventory.SaveAttributes(ctx, rec.URL, attrs); err != nil {
		return fmt.Errorf("save attributes: %w", err)
	}
	if uc.deps.Markers != nil && uc.cfg.TTL > 0 {
		if err := uc.deps.Markers.MarkExtracted(ctx, rec.URL, uc.cfg.TTL); err != nil {
			uc.logger.Warn("failed to set extraction marker", zap.String("url", rec.URL), zap.Error(err))
		}
	}
	return nil
}
