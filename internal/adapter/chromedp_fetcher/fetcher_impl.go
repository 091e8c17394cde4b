package chromedp_fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/cardscout/internal/proxy"
	"github.com/user/cardscout/internal/repository"
)

// Options configures the headless browser.
type Options struct {
	Headless bool
	// ExecPath overrides the browser binary; empty uses chromedp's lookup.
	ExecPath string
	Proxies  *proxy.Manager
}

// Fetcher renders pages in tabs of one shared headless browser.
type Fetcher struct {
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
	proxies       *proxy.Manager
	logger        *zap.Logger
	closeOnce     sync.Once
}

// NewFetcher starts the browser. Call Close to release it.
func NewFetcher(opts Options, logger *zap.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(opts.Proxies.UserAgent()),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	// The proxy is a browser-wide flag, so it is chosen once per browser.
	if p := opts.Proxies.Proxy(); p != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(p))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Errorf),
	)
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Fetcher{
		browserCtx:    browserCtx,
		cancelAlloc:   cancelAlloc,
		cancelBrowser: cancelBrowser,
		proxies:       opts.Proxies,
		logger:        logger,
	}, nil
}

// Fetch opens url in a new tab, waits for readinessMarker and returns the
// rendered HTML. The tab is closed on every path.
func (f *Fetcher) Fetch(ctx context.Context, url, readinessMarker string, timeout time.Duration) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	runCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		status int64
	)
	chromedp.ListenTarget(runCtx, func(ev any) {
		if resp, ok := ev.(*network.EventResponseReceived); ok && resp.Type == network.ResourceTypeDocument {
			mu.Lock()
			if status == 0 {
				status = resp.Response.Status
			}
			mu.Unlock()
		}
	})

	start := time.Now()
	err := chromedp.Run(runCtx,
		network.Enable(),
		emulation.SetUserAgentOverride(f.proxies.UserAgent()),
		chromedp.Navigate(url),
	)
	if err != nil {
		return "", f.classify(ctx, runCtx, url, timeout, err, repository.ErrNavigationFailed)
	}

	mu.Lock()
	navStatus := status
	mu.Unlock()
	if navStatus >= 400 {
		return "", fmt.Errorf("%w: %s: status %d", repository.ErrNavigationFailed, url, navStatus)
	}

	var html string
	err = chromedp.Run(runCtx,
		chromedp.WaitReady(readinessMarker, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", f.classify(ctx, runCtx, url, timeout, err, repository.ErrFetchTimeout)
	}

	f.logger.Debug("rendered page",
		zap.String("url", url),
		zap.Int64("status", navStatus),
		zap.Duration("duration", time.Since(start)),
	)
	return html, nil
}

// classify maps a chromedp failure onto the fetch error taxonomy.
func (f *Fetcher) classify(callerCtx, runCtx context.Context, url string, timeout time.Duration, err, fallback error) error {
	if callerCtx.Err() != nil {
		return fmt.Errorf("fetch %s: %w", url, callerCtx.Err())
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", repository.ErrFetchTimeout, url, timeout)
	}
	return fmt.Errorf("%w: %s: %v", fallback, url, err)
}

// Close shuts the browser down.
func (f *Fetcher) Close() {
	f.closeOnce.Do(func() {
		f.cancelBrowser()
		f.cancelAlloc()
	})
}
