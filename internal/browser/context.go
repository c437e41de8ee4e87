// Package browser manages a headless Chrome instance used to print record
// pages to PDF.
//
// The browser is started lazily on the first print and reused afterwards.
// Every print runs in its own tab. When a print fails the browser is
// restarted once and the print retried.
package browser

import (
	"context"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ContextHolder provides thread-safe access to a browser context.
//
// Thread-safety:
//   - All methods use mutex locking
//   - Context swaps are atomic
type ContextHolder struct {
	mu     sync.RWMutex       // Protects ctx and cancel
	ctx    context.Context    // Current browser context
	cancel context.CancelFunc // Cancels the browser and its allocator
}

// Get returns the current browser context, or nil before the first Set.
func (h *ContextHolder) Get() context.Context {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ctx
}

// Set replaces the browser context, cancelling the old one.
func (h *ContextHolder) Set(ctx context.Context, cancel context.CancelFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
	}
	h.ctx = ctx
	h.cancel = cancel
}

// Cancel shuts the browser down.
func (h *ContextHolder) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.ctx = nil
}

// NewContext creates a headless Chrome browser context.
//
// Browser configuration:
//   - Headless, no sandbox (runs inside containers)
//   - GPU disabled
//   - chromedp debug output routed to the logger
//
// Returns:
//   - context.Context: Browser context for chromedp actions
//   - context.CancelFunc: Stops the browser and releases the allocator
func NewContext(logger *zap.Logger) (context.Context, context.CancelFunc) {
	logger.Info("  → Creating new browser context...")

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	sugar := logger.Sugar()
	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Warnf),
	)

	logger.Info("  ✓ Browser context created")
	return ctx, func() {
		cancel()
		allocCancel()
	}
}

// RestartContext cancels the old context and creates a new one.
func RestartContext(logger *zap.Logger, oldCancel context.CancelFunc) (context.Context, context.CancelFunc) {
	logger.Warn("  ⚠️  Restarting browser context...")

	if oldCancel != nil {
		oldCancel()
		logger.Info("  ✓ Old browser context cancelled")
	}
	return NewContext(logger)
}
