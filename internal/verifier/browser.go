// -----------------------------------------------------------------------
// Browser Fetch - Headless rendering for JS-walled fallback sources
// -----------------------------------------------------------------------

package verifier

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// BrowserFetcher renders a page in headless Chrome and returns the settled
// DOM. Some fallback sources serve their case data from scripts, so a
// plain GET returns an empty shell; this path is opt-in via
// verification.browser.enabled and the plain fetcher remains the default.
type BrowserFetcher struct {
	userAgent string
	waitTime  time.Duration
	logger    arbor.ILogger
}

func NewBrowserFetcher(userAgent string, waitTime time.Duration, logger arbor.ILogger) *BrowserFetcher {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if waitTime <= 0 {
		waitTime = 3 * time.Second
	}
	return &BrowserFetcher{
		userAgent: userAgent,
		waitTime:  waitTime,
		logger:    logger,
	}
}

// FetchHTML navigates to the URL, waits for the render to settle, and
// returns the document's outer HTML. The caller's context bounds the whole
// render including browser startup.
func (b *BrowserFetcher) FetchHTML(ctx context.Context, rawURL string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(b.userAgent),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocatorCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	defer browserCancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(rawURL),
		chromedp.Sleep(b.waitTime),
		chromedp.ActionFunc(func(ctx context.Context) error {
			node, err := dom.GetDocument().Do(ctx)
			if err != nil {
				return err
			}
			html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("browser fetch of %s failed: %w", rawURL, err)
	}

	b.logger.Debug().
		Str("url", rawURL).
		Int("bytes", len(html)).
		Msg("Rendered page via headless browser")

	return []byte(html), nil
}
