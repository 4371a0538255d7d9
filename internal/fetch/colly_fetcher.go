package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// CollyConfig controls collector behavior.
type CollyConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// CollyFetcher implements Fetcher using a Colly collector per request.
// Conditional validators ride as If-None-Match / If-Modified-Since headers;
// a 304 answer surfaces as Result.NotModified rather than an error.
type CollyFetcher struct {
	cfg           CollyConfig
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewCollyFetcher builds a fetcher with a pooled transport.
func NewCollyFetcher(cfg CollyConfig, logger *zap.Logger) *CollyFetcher {
	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(),
	)
	base.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     60 * time.Second,
	})
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	base.SetRequestTimeout(timeout)
	return &CollyFetcher{cfg: cfg, baseCollector: base, logger: logger}
}

// Fetch executes a single GET, honoring ctx cancellation.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string, cond Conditional) (Result, error) {
	collector := f.baseCollector.Clone()

	var (
		result   Result
		fetchErr error
		once     sync.Once
	)
	collector.OnRequest(func(r *colly.Request) {
		if cond.ETag != "" {
			r.Headers.Set("If-None-Match", cond.ETag)
		}
		if cond.LastModified != "" {
			r.Headers.Set("If-Modified-Since", cond.LastModified)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		once.Do(func() {
			headers := http.Header{}
			if r.Headers != nil {
				headers = r.Headers.Clone()
			}
			result = Result{
				URL:         rawURL,
				FinalURL:    r.Request.URL.String(),
				StatusCode:  r.StatusCode,
				ContentType: headers.Get("Content-Type"),
				Headers:     headers,
				Body:        append([]byte(nil), r.Body...),
			}
		})
	})
	collector.OnError(func(r *colly.Response, err error) {
		once.Do(func() {
			if err == nil {
				err = errors.New("unknown colly error")
			}
			fetchErr = err
			if r != nil {
				result.StatusCode = r.StatusCode
			}
		})
	})

	done := make(chan error, 1)
	go func() {
		collector.Visit(rawURL) //nolint:errcheck // surfaced through OnError
		collector.Wait()
		done <- nil
	}()
	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case <-done:
	}

	if fetchErr != nil {
		return Result{}, fmt.Errorf("fetch %s: %w", rawURL, fetchErr)
	}
	switch {
	case result.StatusCode == http.StatusNotModified:
		result.NotModified = true
		result.Body = nil
		return result, nil
	case result.StatusCode >= 200 && result.StatusCode < 300:
		return result, nil
	case result.StatusCode == 0:
		return Result{}, fmt.Errorf("fetch %s: no response", rawURL)
	default:
		return Result{}, fmt.Errorf("fetch %s: status %d", rawURL, result.StatusCode)
	}
}
