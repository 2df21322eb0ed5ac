//go:build !no_automation

package automation

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"xbee-go-home/internal/stack"
	"xbee-go-home/internal/store"
)

var testNow = time.Date(2026, 3, 1, 14, 30, 5, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeBackend struct {
	events *stack.EventBus
	store  *store.BoltStore
	status stack.Status

	mu      sync.Mutex
	sent    []stack.SendRequest
	sendErr error
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return &fakeBackend{events: stack.NewEventBus(testLogger()), store: st}
}

func (b *fakeBackend) Events() *stack.EventBus { return b.events }
func (b *fakeBackend) Store() store.Store      { return b.store }
func (b *fakeBackend) Status() stack.Status    { return b.status }

func (b *fakeBackend) Send(_ context.Context, r stack.SendRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, r)
	return nil
}

func (b *fakeBackend) sentRequests() []stack.SendRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]stack.SendRequest(nil), b.sent...)
}

// waitSent polls until n requests were sent or a second passes.
func (b *fakeBackend) waitSent(t *testing.T, n int) []stack.SendRequest {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if sent := b.sentRequests(); len(sent) >= n {
			return sent
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("sent %d requests, want %d", len(b.sentRequests()), n)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeBackend) {
	t.Helper()
	b := newFakeBackend(t)
	m, err := NewManager(filepath.Join(t.TempDir(), "scripts"), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine(b, m, testLogger(), SystemConfig{})
	e.now = func() time.Time { return testNow }
	t.Cleanup(e.Stop)
	return e, b
}

// newTestVM returns a VM that is neither started nor capturing logs.
func newTestVM(t *testing.T, e *Engine) *scriptVM {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	vm := e.newVM(ctx, cancel, "test")
	t.Cleanup(func() {
		cancel()
		vm.state.Close()
	})
	return vm
}
