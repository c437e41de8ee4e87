package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// DefaultPrintTimeout bounds a single print including browser start-up.
const DefaultPrintTimeout = 30 * time.Second

// A4 in inches, as expected by Page.printToPDF.
const (
	paperWidth  = 8.27
	paperHeight = 11.69
)

// Printer prints HTML documents to PDF through headless Chrome.
type Printer struct {
	holder  ContextHolder
	logger  *zap.Logger
	timeout time.Duration

	// startMu serialises browser start and restart.
	startMu sync.Mutex
}

// NewPrinter creates a printer. The browser is not started until the first
// PrintPDF call.
func NewPrinter(logger *zap.Logger, timeout time.Duration) *Printer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultPrintTimeout
	}
	return &Printer{logger: logger, timeout: timeout}
}

// PrintPDF loads html into a fresh tab and prints it as an A4 PDF.
func (p *Printer) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	data, err := p.print(ctx, html)
	if err == nil {
		return data, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	p.logger.Warn("⚠️  Print failed, restarting browser", zap.Error(err))
	p.restart()

	data, err = p.print(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return data, nil
}

// Close stops the browser.
func (p *Printer) Close() {
	p.holder.Cancel()
}

// browser returns the shared browser context, starting Chrome if needed.
// Tabs created from a context whose browser is not running would each
// start (and on cancel, stop) their own browser.
func (p *Printer) browser() (context.Context, error) {
	if ctx := p.holder.Get(); ctx != nil {
		return ctx, nil
	}

	p.startMu.Lock()
	defer p.startMu.Unlock()
	if ctx := p.holder.Get(); ctx != nil {
		return ctx, nil
	}
	ctx, cancel := NewContext(p.logger)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	p.holder.Set(ctx, cancel)
	return ctx, nil
}

func (p *Printer) restart() {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	ctx, cancel := RestartContext(p.logger, nil)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		p.logger.Error("❌ Browser restart failed", zap.Error(err))
		p.holder.Cancel()
		return
	}
	// Set cancels the old browser.
	p.holder.Set(ctx, cancel)
}

func (p *Printer) print(ctx context.Context, html string) ([]byte, error) {
	browserCtx, err := p.browser()
	if err != nil {
		return nil, err
	}
	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, p.timeout)
	defer cancelTimeout()

	// Abandon the tab when the caller goes away.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var data []byte
	err = chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				Do(ctx)
			if err != nil {
				return err
			}
			data = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return data, nil
}
