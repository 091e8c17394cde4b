package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/cardscout/internal/discovery"
	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/internal/repository"
	"github.com/user/cardscout/pkg/metrics"
)

var (
	// ErrSiteBusy means another discovery pass of the same site holds its lock.
	ErrSiteBusy = errors.New("site discovery already running")
	// ErrNoFetcher means no fetcher is registered for the site's fetcher kind.
	ErrNoFetcher = errors.New("no fetcher for site")
	// ErrStore wraps inventory write failures.
	ErrStore = errors.New("inventory store failure")
)

// Fetchers maps a fetcher kind to its implementation.
type Fetchers map[entity.FetcherKind]repository.PageFetcher

// For returns the fetcher of def. An unset kind means rendered.
func (f Fetchers) For(def entity.SiteDefinition) (repository.PageFetcher, entity.FetcherKind, error) {
	kind := def.Fetcher
	if kind == "" {
		kind = entity.FetcherRendered
	}
	fetcher, ok := f[kind]
	if !ok || fetcher == nil {
		return nil, kind, fmt.Errorf("%w: fetcher kind %q", ErrNoFetcher, kind)
	}
	return fetcher, kind, nil
}

// DiscoveryConfig bounds a discovery run.
type DiscoveryConfig struct {
	FetchTimeout       time.Duration
	MaxConcurrency     int
	PolitenessInterval time.Duration
	SiteLockTTL        time.Duration
}

// DiscoveryResult is the outcome of one site's discovery pass.
type DiscoveryResult struct {
	Site string
	// URLs are the normalized product URLs deemed INCLUDE, sorted.
	URLs       []string
	New        int
	Reverified int
	Err        error
	// Warning is set for non-fatal conditions such as unparseable markup.
	Warning  string
	Duration time.Duration
}

// Summary converts the result into its reporting form.
func (r DiscoveryResult) Summary() entity.SiteSummary {
	s := entity.SiteSummary{
		Site:           r.Site,
		URLsFound:      len(r.URLs),
		URLsNew:        r.New,
		URLsReverified: r.Reverified,
		Warning:        r.Warning,
		Duration:       r.Duration,
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	return s
}

// Discoverer defines the interface for running discovery passes.
type Discoverer interface {
	// RunSite runs one site's pass. Failures are returned in the result.
	RunSite(ctx context.Context, site *discovery.Site) DiscoveryResult
	// RunAll runs every site in order with isolation and pacing. An empty
	// runID is replaced by a generated one.
	RunAll(ctx context.Context, runID string, sites []*discovery.Site) entity.RunSummary
}

// DiscoveryDeps are the collaborators of the discovery use case. Only
// Fetchers and Inventory are required.
type DiscoveryDeps struct {
	Fetchers  Fetchers
	Inventory repository.InventoryRepository
	Failures  repository.FailureRepository
	Locks     repository.SiteLockRepository
	Queue     repository.QueueRepository
	Summaries repository.SummaryRepository
}

// DiscoveryOption customizes the discovery use case.
type DiscoveryOption func(*discoveryUseCase)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) DiscoveryOption {
	return func(uc *discoveryUseCase) { uc.now = now }
}

// WithRunIDs replaces the uuid run id generator.
func WithRunIDs(next func() string) DiscoveryOption {
	return func(uc *discoveryUseCase) { uc.newID = next }
}

type discoveryUseCase struct {
	deps   DiscoveryDeps
	cfg    DiscoveryConfig
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	clockMu sync.Mutex
	lastTS  time.Time
}

// NewDiscoveryUseCase creates a new instance of the discovery use case.
func NewDiscoveryUseCase(deps DiscoveryDeps, cfg DiscoveryConfig, logger *zap.Logger, opts ...DiscoveryOption) Discoverer {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &discoveryUseCase{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *discoveryUseCase) RunSite(ctx context.Context, site *discovery.Site) DiscoveryResult {
	return uc.runSite(ctx, uc.newID(), site)
}

func (uc *discoveryUseCase) RunAll(ctx context.Context, runID string, sites []*discovery.Site) entity.RunSummary {
	if runID == "" {
		runID = uc.newID()
	}
	summary := entity.RunSummary{RunID: runID, StartedAt: uc.now().UTC()}
	results := make([]DiscoveryResult, len(sites))
	log := uc.logger.With(zap.String("run_id", runID))
	log.Info("discovery run started", zap.Int("sites", len(sites)))

	// A slot carries the moment its previous pass finished.
	slots := make(chan time.Time, uc.cfg.MaxConcurrency)
	for range uc.cfg.MaxConcurrency {
		slots <- time.Time{}
	}

	var g errgroup.Group
	var lastStart time.Time
	launched := 0
	var stopErr error
	for i, site := range sites {
		if stopErr = ctx.Err(); stopErr != nil {
			break
		}
		var freedAt time.Time
		select {
		case freedAt = <-slots:
		case <-ctx.Done():
			stopErr = ctx.Err()
		}
		if stopErr != nil {
			break
		}
		if stopErr = sleepUntil(ctx, nextStart(freedAt, lastStart, uc.cfg.PolitenessInterval)); stopErr != nil {
			break
		}
		lastStart = time.Now()
		launched++
		g.Go(func() error {
			results[i] = uc.runSite(ctx, runID, site)
			slots <- time.Now()
			return nil
		})
	}
	_ = g.Wait()

	for i := launched; i < len(sites); i++ {
		results[i] = DiscoveryResult{Site: sites[i].Name(), Err: fmt.Errorf("not started: %w", stopErr)}
	}

	summary.Sites = make([]entity.SiteSummary, len(results))
	for i, r := range results {
		summary.Sites[i] = r.Summary()
	}
	summary.FinishedAt = uc.now().UTC()
	metrics.LastRunTimestamp.Set(float64(summary.FinishedAt.Unix()))

	if uc.deps.Summaries != nil {
		// The run is over; a cancelled caller must not lose the summary.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := uc.deps.Summaries.SaveLatest(saveCtx, &summary); err != nil {
			log.Warn("failed to store run summary", zap.Error(err))
		}
		cancel()
	}

	log.Info("discovery run finished",
		zap.Int("succeeded", summary.Succeeded()),
		zap.Int("failed", summary.Failed()),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary
}

// nextStart is the earliest start of a pass: gap after the previous start
// and gap after the pass that last used the slot finished.
func nextStart(freedAt, lastStart time.Time, gap time.Duration) time.Time {
	var at time.Time
	if gap <= 0 {
		return at
	}
	if !lastStart.IsZero() {
		at = lastStart.Add(gap)
	}
	if !freedAt.IsZero() && freedAt.Add(gap).After(at) {
		at = freedAt.Add(gap)
	}
	return at
}

func sleepUntil(ctx context.Context, at time.Time) error {
	d := time.Until(at)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (uc *discoveryUseCase) runSite(ctx context.Context, runID string, site *discovery.Site) (result DiscoveryResult) {
	def := site.Definition
	log := uc.logger.With(zap.String("run_id", runID), zap.String("site", def.Name))
	start := time.Now()
	result.Site = def.Name

	defer func() {
		result.Duration = time.Since(start)
		uc.observe(ctx, log, def, result)
	}()

	if uc.deps.Locks != nil && uc.cfg.SiteLockTTL > 0 {
		ok, err := uc.deps.Locks.TryLock(ctx, def.Name, runID, uc.cfg.SiteLockTTL)
		if err != nil {
			result.Err = fmt.Errorf("acquire site lock: %w", err)
			return result
		}
		if !ok {
			result.Err = ErrSiteBusy
			return result
		}
		defer func() {
			if err := uc.deps.Locks.Unlock(context.WithoutCancel(ctx), def.Name, runID); err != nil {
				log.Warn("failed to release site lock", zap.Error(err))
			}
		}()
	}

	fetcher, kind, err := uc.deps.Fetchers.For(def)
	if err != nil {
		result.Err = err
		return result
	}

	fetchStart := time.Now()
	html, err := fetcher.Fetch(ctx, def.ListingURL, def.ReadinessMarker, uc.cfg.FetchTimeout)
	metrics.FetchDuration.WithLabelValues(def.Name, string(kind)).Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		result.Err = fmt.Errorf("fetch listing: %w", err)
		return result
	}

	links, err := discovery.SelectLinks(html, def.ListingURL, def.Strategy)
	if err != nil {
		if !errors.Is(err, discovery.ErrParse) {
			result.Err = err
			return result
		}
		result.Warning = err.Error()
		log.Warn("listing markup could not be parsed", zap.Error(err))
		links = nil
	}
	for i := range links {
		links[i].Site = def.Name
	}

	included := site.Rules.ClassifyAll(links)
	result.URLs = make([]string, 0, len(included))
	for _, c := range included {
		result.URLs = append(result.URLs, c.Key)
	}
	log.Debug("classified links", zap.Int("candidates", len(links)), zap.Int("included", len(result.URLs)))

	if len(result.URLs) == 0 {
		return result
	}

	// A cancelled pass stores nothing.
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	upserted, err := uc.deps.Inventory.UpsertDiscovered(ctx, def.Name, result.URLs, uc.timestamp())
	if err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrStore, err)
		return result
	}
	result.New = upserted.Inserted
	result.Reverified = upserted.Reverified

	if uc.deps.Queue != nil && len(upserted.NewURLs) > 0 {
		if err := uc.deps.Queue.Push(ctx, upserted.NewURLs...); err != nil {
			log.Warn("failed to queue new urls for extraction", zap.Error(err))
		}
	}
	return result
}

// observe records metrics, logs and the failure repository state of a finished pass.
func (uc *discoveryUseCase) observe(ctx context.Context, log *zap.Logger, def entity.SiteDefinition, r DiscoveryResult) {
	ctx = context.WithoutCancel(ctx)

	if r.Err == nil {
		metrics.SitePassesTotal.WithLabelValues(def.Name, "success", "").Inc()
		metrics.URLsDiscovered.WithLabelValues(def.Name, "new").Add(float64(r.New))
		metrics.URLsDiscovered.WithLabelValues(def.Name, "reverified").Add(float64(r.Reverified))
		log.Info("site discovery succeeded",
			zap.Int("urls_found", len(r.URLs)),
			zap.Int("urls_new", r.New),
			zap.Int("urls_reverified", r.Reverified),
			zap.Duration("duration", r.Duration),
		)
		if uc.deps.Failures != nil {
			if err := uc.deps.Failures.Delete(ctx, def.Name); err != nil {
				log.Warn("failed to clear failure record", zap.Error(err))
			}
		}
		return
	}

	metrics.SitePassesTotal.WithLabelValues(def.Name, "failure", errorType(r.Err)).Inc()
	log.Error("site discovery failed", zap.Error(r.Err), zap.Duration("duration", r.Duration))
	if uc.deps.Failures == nil || errors.Is(r.Err, ErrSiteBusy) {
		return
	}
	failure := &entity.DiscoveryFailure{
		SiteName:      def.Name,
		ListingURL:    def.ListingURL,
		FailureReason: r.Err.Error(),
		LastAttemptAt: uc.now().UTC(),
	}
	if err := uc.deps.Failures.SaveOrUpdate(ctx, failure); err != nil {
		log.Error("failed to record site failure", zap.Error(err))
	}
}

// timestamp returns the current time, never earlier than a previously returned one.
func (uc *discoveryUseCase) timestamp() time.Time {
	uc.clockMu.Lock()
	defer uc.clockMu.Unlock()
	ts := uc.now().UTC()
	if ts.Before(uc.lastTS) {
		ts = uc.lastTS
	}
	uc.lastTS = ts
	return ts
}

func errorType(err error) string {
	switch {
	case errors.Is(err, repository.ErrFetchTimeout):
		return "timeout"
	case errors.Is(err, repository.ErrNavigationFailed):
		return "navigation"
	case errors.Is(err, ErrStore):
		return "store"
	case errors.Is(err, ErrSiteBusy):
		return "busy"
	case errors.Is(err, ErrNoFetcher):
		return "config"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "unknown"
	}
}
