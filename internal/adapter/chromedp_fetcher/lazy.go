package chromedp_fetcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LazyFetcher starts the browser on the first Fetch. A failed start is
// returned by that and every later Fetch.
type LazyFetcher struct {
	opts   Options
	logger *zap.Logger
	start  func(Options, *zap.Logger) (*Fetcher, error)

	once    sync.Once
	mu      sync.Mutex
	fetcher *Fetcher
	err     error
}

func NewLazyFetcher(opts Options, logger *zap.Logger) *LazyFetcher {
	return &LazyFetcher{opts: opts, logger: logger, start: NewFetcher}
}

func (l *LazyFetcher) Fetch(ctx context.Context, url, readinessMarker string, timeout time.Duration) (string, error) {
	l.once.Do(func() {
		f, err := l.start(l.opts, l.logger)
		l.mu.Lock()
		l.fetcher, l.err = f, err
		l.mu.Unlock()
	})
	l.mu.Lock()
	f, err := l.fetcher, l.err
	l.mu.Unlock()
	if err != nil {
		return "", err
	}
	return f.Fetch(ctx, url, readinessMarker, timeout)
}

// Close shuts the browser down if it was started.
func (l *LazyFetcher) Close() {
	l.mu.Lock()
	f := l.fetcher
	l.mu.Unlock()
	if f != nil {
		f.Close()
	}
}
