// Package colly_fetcher fetches server-rendered listing and product pages over plain HTTP.
package colly_fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/user/cardscout/internal/proxy"
	"github.com/user/cardscout/internal/repository"
)

// Fetcher implements repository.PageFetcher with a fresh colly collector per page.
type Fetcher struct {
	proxies *proxy.Manager
	logger  *zap.Logger
}

// NewFetcher creates a static page fetcher. proxies may be nil.
func NewFetcher(proxies *proxy.Manager, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{proxies: proxies, logger: logger}
}

// Fetch gets url and checks that readinessMarker is present in the response body.
// A static page cannot grow the marker later, so a missing marker is reported as
// ErrFetchTimeout.
func (f *Fetcher) Fetch(ctx context.Context, url, readinessMarker string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.ParseHTTPErrorResponse(),
		colly.AllowURLRevisit(),
		colly.UserAgent(f.proxies.UserAgent()),
	)
	c.SetRequestTimeout(timeout)
	if p := f.proxies.Proxy(); p != "" {
		if err := c.SetProxy(p); err != nil {
			return "", fmt.Errorf("%w: invalid proxy: %v", repository.ErrNavigationFailed, err)
		}
	}

	var (
		body   []byte
		status int
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})

	start := time.Now()
	err := c.Visit(url)
	f.logger.Debug("static fetch finished",
		zap.String("url", url),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
	if err != nil {
		if isTimeout(ctx, err) {
			return "", fmt.Errorf("%w: %s after %s", repository.ErrFetchTimeout, url, timeout)
		}
		return "", fmt.Errorf("%w: %s: %v", repository.ErrNavigationFailed, url, err)
	}
	if status >= http.StatusBadRequest {
		return "", fmt.Errorf("%w: %s: status %d", repository.ErrNavigationFailed, url, status)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %s: unreadable body: %v", repository.ErrNavigationFailed, url, err)
	}
	if readinessMarker != "" && doc.Find(readinessMarker).Length() == 0 {
		return "", fmt.Errorf("%w: %s: marker %q not present", repository.ErrFetchTimeout, url, readinessMarker)
	}
	return string(body), nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
