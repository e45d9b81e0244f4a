package providers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lysyi3m/stream-comb/app/metrics"
	"github.com/lysyi3m/stream-comb/app/schedule"
)

const maxBodyBytes = 16 << 20

// Fetcher returns the body of a successful GET or a *schedule.FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, target string) ([]byte, error)
}

var _ Fetcher = (*HTTPFetcher)(nil)

// HTTPFetcher tries the URL directly, then through each proxy prefix in order.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	proxies   []string
	timeout   time.Duration
}

func NewHTTPFetcher(client *http.Client, userAgent string, proxies []string, timeout time.Duration) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPFetcher{
		client:    client,
		userAgent: userAgent,
		proxies:   proxies,
		timeout:   timeout,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, target string) ([]byte, error) {
	host := target
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		host = u.Host
	}

	data, err := f.get(ctx, target, host, "direct")
	if err == nil {
		return data, nil
	}
	lastErr := err

	for i, proxy := range f.proxies {
		if ctx.Err() != nil {
			break
		}
		slog.Debug("Direct fetch failed, trying proxy", "url", target, "proxy", i, "error", lastErr)

		data, err := f.get(ctx, proxy+url.QueryEscape(target), host, "proxy"+strconv.Itoa(i))
		if err == nil {
			return data, nil
		}
		lastErr = err
	}

	return nil, &schedule.FetchError{URL: target, Err: lastErr, Status: statusOf(lastErr)}
}

func (f *HTTPFetcher) get(ctx context.Context, requestURL, host, route string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		metrics.UpstreamDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(host, route, "error").Inc()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(host, route, "error").Inc()
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamRequests.WithLabelValues(host, route, strconv.Itoa(resp.StatusCode)).Inc()
		return nil, &statusError{code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(host, route, "error").Inc()
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	metrics.UpstreamRequests.WithLabelValues(host, route, strconv.Itoa(resp.StatusCode)).Inc()
	return data, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.code, http.StatusText(e.code))
}

func statusOf(err error) int {
	if se, ok := err.(*statusError); ok {
		return se.code
	}
	return 0
}
