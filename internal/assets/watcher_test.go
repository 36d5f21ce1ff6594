package assets

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(kind, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind+":"+name)
}

func (r *recorder) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.events, event)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

func startWatcher(t *testing.T) (*Dir, *recorder) {
	t.Helper()
	d := tempDir(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rec := &recorder{}
	go Watch(ctx, d.Root(), logger, rec.add)
	time.Sleep(100 * time.Millisecond)
	return d, rec
}

func TestWatcher_SaveReportsAdded(t *testing.T) {
	d, rec := startWatcher(t)

	if _, err := d.Save("scan.pdf", strings.NewReader("pdf")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("added:scan.pdf")
	}, "expected added:scan.pdf")

	for _, ev := range rec.snapshot() {
		if strings.Contains(ev, tmpPrefix) {
			t.Errorf("temp file leaked into events: %s", ev)
		}
	}
}

func TestWatcher_RemoveReportsRemoved(t *testing.T) {
	d, rec := startWatcher(t)

	path := filepath.Join(d.Root(), "old.pdf")
	_ = os.WriteFile(path, []byte("x"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("added:old.pdf")
	}, "expected added:old.pdf")

	_ = os.Remove(path)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("removed:old.pdf")
	}, "expected removed:old.pdf")
}
