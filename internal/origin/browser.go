package origin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/practice2025/supportai/internal/repository"
	"github.com/practice2025/supportai/internal/upstream"
)

// BrowserFetcher renders document URLs in headless Chrome and reads the body text.
type BrowserFetcher struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger
}

// NewBrowserFetcher starts a browser allocator. An empty wsURL launches a local
// Chrome; otherwise the fetcher attaches to the DevTools endpoint at wsURL.
func NewBrowserFetcher(wsURL string, logger *slog.Logger) *BrowserFetcher {
	if logger == nil {
		logger = slog.Default()
	}

	var allocCtx context.Context
	var cancel context.CancelFunc
	if wsURL != "" {
		allocCtx, cancel = chromedp.NewRemoteAllocator(context.Background(), wsURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.DisableGPU,
			chromedp.NoSandbox,
		)
		allocCtx, cancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	return &BrowserFetcher{allocCtx: allocCtx, cancel: cancel, logger: logger}
}

// Fetch implements Fetcher
func (f *BrowserFetcher) Fetch(ctx context.Context, doc repository.Document) (string, error) {
	if doc.URL == "" {
		return "", upstream.Wrap("browser", fmt.Errorf("document %s has no url", doc.ID))
	}

	tabCtx, cancelTab := chromedp.NewContext(f.allocCtx)
	defer cancelTab()

	// stop the tab when the caller gives up
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var text string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(doc.URL),
		chromedp.Text("body", &text, chromedp.ByQuery, chromedp.NodeVisible),
	)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return "", upstream.Wrap("browser", fmt.Errorf("failed to render %s: %w", doc.URL, err))
	}

	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", upstream.Wrap("browser", fmt.Errorf("page %s has no text", doc.URL))
	}
	f.logger.Debug("rendered origin page", "url", doc.URL, "chars", len([]rune(text)))
	return text, nil
}

// Close shuts down the browser allocator
func (f *BrowserFetcher) Close() {
	f.cancel()
}

var _ Fetcher = (*BrowserFetcher)(nil)
