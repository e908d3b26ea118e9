package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

// screenshotTimeout bounds one page load plus capture.
const screenshotTimeout = 30 * time.Second

// PNGExporter screenshots rendered chart pages in headless Chrome.
type PNGExporter struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	logger   *log.Logger
}

// NewPNGExporter starts a Chrome allocator. Chrome itself launches on the
// first export.
func NewPNGExporter(logger *log.Logger) *PNGExporter {
	if logger == nil {
		logger = log.New(log.Writer(), "[png] ", log.LstdFlags)
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(width+40, height+400),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &PNGExporter{allocCtx: allocCtx, cancel: cancel, logger: logger}
}

// Close shuts the browser down.
func (e *PNGExporter) Close() {
	if e.cancel != nil {
		e.cancel()
	}
}

// Export loads page and returns a PNG of its chart element.
func (e *PNGExporter) Export(ctx context.Context, page []byte) ([]byte, error) {
	browserCtx, cancel := chromedp.NewContext(e.allocCtx)
	defer cancel()
	browserCtx, cancel = context.WithTimeout(browserCtx, screenshotTimeout)
	defer cancel()

	// Stop the browser work when the caller gives up.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	url := "data:text/html;base64," + base64.StdEncoding.EncodeToString(page)
	var png []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(`#chart`, chromedp.ByQuery),
		chromedp.Screenshot(`#chart`, &png, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("capturing chart: %w", err)
	}
	e.logger.Printf("✓ Captured chart (%d bytes)", len(png))
	return png, nil
}
