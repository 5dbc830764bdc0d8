package repl

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsvm/internal/vm"
)

// Real fsnotify-driven tests are timing-sensitive and spawn OS-level
// watcher goroutines that don't always unwind before a short test deadline;
// TestWatch_RerunsOnWrite below exercises the real path with a generous
// timeout instead of skipping outright, since this package has no
// kernel-thread reuse concern forcing a skip.
func TestWatch_RerunsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.js")
	require.NoError(t, os.WriteFile(path, []byte("1 + 1"), 0644))

	var mu sync.Mutex
	var out strings.Builder
	safeWrite := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		out.WriteString(s)
	}
	w := syncWriter{write: safeWrite}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, vm.NewInterpreter, w)
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("2 + 2"), 0644))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
	}

	mu.Lock()
	got := out.String()
	mu.Unlock()
	assert.Contains(t, got, "2")
	assert.Contains(t, got, "4")
}

// syncWriter adapts a function to io.Writer so the test can serialize
// access to the shared strings.Builder the watcher goroutine writes into.
type syncWriter struct {
	write func(string)
}

func (w syncWriter) Write(p []byte) (int, error) {
	w.write(string(p))
	return len(p), nil
}
