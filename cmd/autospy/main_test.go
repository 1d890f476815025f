package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dm-vev/autospy/server/autospy"
	"github.com/jonboulle/clockwork"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogMetrics(t *testing.T) {
	clock := clockwork.NewFakeClock()
	out := &syncBuffer{}
	log := slog.New(slog.NewTextHandler(out, nil))
	metrics := autospy.NewMetrics()
	metrics.IncStarted()
	metrics.IncStarted()
	metrics.IncEnded()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		logMetrics(ctx, clock, time.Minute, log, metrics)
		close(done)
	}()

	wait, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	if err := clock.BlockUntilContext(wait, 1); err != nil {
		t.Fatalf("metrics loop did not start: %v", err)
	}
	clock.Advance(time.Minute)

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "AutoSpy metrics.") {
		if time.Now().After(deadline) {
			t.Fatalf("metrics were not logged")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !strings.Contains(out.String(), "active=1") {
		t.Fatalf("log %q does not report one active session", out.String())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("metrics loop did not stop")
	}
}
