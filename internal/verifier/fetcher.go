// -----------------------------------------------------------------------
// Fetcher - Rate-limited HTTP GET for fallback sources and URL ingestion
// -----------------------------------------------------------------------

package verifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

const defaultUserAgent = "casestrainer/1.0 (citation verification)"

// Per-host request spacing for fallback sources.
const hostRequestInterval = 500 * time.Millisecond

// Response body ceiling; legal-database pages are well under this.
const maxFetchBytes = 4 << 20

// Fetcher performs polite HTTP GETs: per-host token-bucket spacing, a
// shared client, and a fixed User-Agent. It doubles as the URL-mode
// document fetcher for the ingestion path.
type Fetcher struct {
	client    *http.Client
	userAgent string
	logger    arbor.ILogger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var _ interfaces.DocumentFetcher = (*Fetcher)(nil)

func NewFetcher(timeout time.Duration, userAgent string, logger arbor.ILogger) *Fetcher {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    logger,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Get fetches a URL and returns body bytes with the response status code.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, int, error) {
	body, status, _, err := f.do(ctx, rawURL)
	return body, status, err
}

// Fetch implements URL-mode document ingestion: download the body and
// report its declared content type. Non-2xx responses are fetch errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, "", models.NewAppError(models.ErrCodeFetchError,
			"url must be absolute http or https", err)
	}

	body, status, contentType, err := f.do(ctx, rawURL)
	if err != nil {
		return nil, "", models.NewAppError(models.ErrCodeFetchError,
			"failed to download document", err)
	}
	if status < 200 || status >= 300 {
		return nil, "", models.NewAppError(models.ErrCodeFetchError,
			fmt.Sprintf("document download returned status %d", status), nil)
	}

	f.logger.Debug().
		Str("url", rawURL).
		Str("content_type", contentType).
		Int("bytes", len(body)).
		Msg("Downloaded document")

	return body, contentType, nil
}

// do blocks on the per-host limiter, performs the GET, and reads the body.
// Context cancellation aborts both the wait and the request.
func (f *Fetcher) do(ctx context.Context, rawURL string) (body []byte, status int, contentType string, err error) {
	if err := f.waitHost(ctx, rawURL); err != nil {
		return nil, 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, "", fmt.Errorf("invalid URL %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, "", err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, resp.StatusCode, "", err
	}
	return body, resp.StatusCode, resp.Header.Get("Content-Type"), nil
}

// waitHost blocks until the host's limiter admits a request.
func (f *Fetcher) waitHost(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil
	}

	f.mu.Lock()
	limiter, ok := f.limiters[parsed.Host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(hostRequestInterval), 1)
		f.limiters[parsed.Host] = limiter
	}
	f.mu.Unlock()

	return limiter.Wait(ctx)
}
