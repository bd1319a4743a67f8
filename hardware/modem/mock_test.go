package modem

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// mockStep answers one Write that must start with expect.
type mockStep struct {
	expect string
	reply  string
}

type mockUart struct {
	t       testing.TB
	mu      sync.Mutex
	script  []mockStep
	pending []byte
	written []string
	opened  string
	closed  bool
	resets  int
}

func newMockUart(t testing.TB, script ...mockStep) *mockUart {
	return &mockUart{t: t, script: script}
}

func (mu *mockUart) Open(path string, baud int) error {
	mu.mu.Lock()
	defer mu.mu.Unlock()
	mu.opened = path
	return nil
}

func (mu *mockUart) Close() error {
	mu.mu.Lock()
	defer mu.mu.Unlock()
	mu.closed = true
	return nil
}

func (mu *mockUart) Write(p []byte) (int, error) {
	mu.mu.Lock()
	defer mu.mu.Unlock()
	s := string(p)
	mu.written = append(mu.written, s)
	if len(mu.script) == 0 {
		mu.t.Errorf("mock uart unexpected write=%q", s)
		return len(p), nil
	}
	step := mu.script[0]
	mu.script = mu.script[1:]
	if !strings.HasPrefix(s, step.expect) {
		mu.t.Errorf("mock uart expected=%q actual=%q", step.expect, s)
	}
	mu.pending = append(mu.pending, step.reply...)
	return len(p), nil
}

func (mu *mockUart) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	mu.mu.Lock()
	if len(mu.pending) == 0 {
		mu.mu.Unlock()
		time.Sleep(timeout)
		return 0, ErrTimeoutT("mock read timeout")
	}
	defer mu.mu.Unlock()
	// deliver in small chunks like real serial line
	n := copy(p, mu.pending[:min(len(mu.pending), 7)])
	mu.pending = mu.pending[n:]
	return n, nil
}

func (mu *mockUart) ResetRead() error {
	mu.mu.Lock()
	defer mu.mu.Unlock()
	mu.resets++
	mu.pending = nil
	return nil
}

func (mu *mockUart) ExpectEnd() {
	mu.mu.Lock()
	defer mu.mu.Unlock()
	if len(mu.script) != 0 {
		mu.t.Errorf("mock uart unused script=%v", mu.script)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
