package browser

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestContextHolderSetCancelsPrevious(t *testing.T) {
	var h ContextHolder
	assert.Nil(t, h.Get())

	first, cancelFirst := context.WithCancel(context.Background())
	h.Set(first, cancelFirst)
	assert.Equal(t, first, h.Get())

	second, cancelSecond := context.WithCancel(context.Background())
	h.Set(second, cancelSecond)

	assert.Error(t, first.Err(), "old context is cancelled on Set")
	assert.NoError(t, second.Err())

	h.Cancel()
	assert.Error(t, second.Err())
	assert.Nil(t, h.Get())

	h.Cancel() // second cancel is a no-op
}

func findChrome() bool {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

func TestPrinterPrintsPDF(t *testing.T) {
	if testing.Short() || !findChrome() {
		t.Skip("headless Chrome not available")
	}

	p := NewPrinter(zap.NewNop(), 20*time.Second)
	defer p.Close()

	data, err := p.PrintPDF(context.Background(), "<html><body><h1>Record 7</h1></body></html>")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}
