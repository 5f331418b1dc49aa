// Package links fetches linked pages and pulls out preview metadata used
// to enrich canonical items.
package links

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxRedirects   = 5
	maxBodyBytes   = 5 * 1024 * 1024
	fetcherUA      = "ai-tg-digest/1.0 (+https://t.me)"
	perDomainRPS   = 1
	perDomainBurst = 2
)

// Fetcher downloads pages with a global and a per-domain rate limit so
// digest enrichment never hammers one site.
type Fetcher struct {
	client         *http.Client
	globalLimiter  *rate.Limiter
	domainLimiters map[string]*rate.Limiter
	mu             sync.RWMutex
}

// NewFetcher builds a fetcher with the given global rate and timeout.
func NewFetcher(rps float64, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}

				return nil
			},
		},
		globalLimiter:  rate.NewLimiter(rate.Limit(rps), 5),
		domainLimiters: make(map[string]*rate.Limiter),
	}
}

// Fetch downloads a page body, capped at 5MB, and returns it together with
// the response Content-Type.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := f.globalLimiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	if err := f.domainLimiter(rawURL).Wait(ctx); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}

	req.Header.Set("User-Agent", fetcherUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", err
	}

	return body, resp.Header.Get("Content-Type"), nil
}

func (f *Fetcher) domainLimiter(rawURL string) *rate.Limiter {
	domain := ""
	if u, err := url.Parse(rawURL); err == nil {
		domain = strings.ToLower(u.Host)
	}

	f.mu.RLock()
	limiter, ok := f.domainLimiters[domain]
	f.mu.RUnlock()

	if ok {
		return limiter
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if limiter, ok := f.domainLimiters[domain]; ok {
		return limiter
	}

	limiter = rate.NewLimiter(perDomainRPS, perDomainBurst)
	f.domainLimiters[domain] = limiter

	return limiter
}
