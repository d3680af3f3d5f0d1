package engine

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"archguard-hq/warden/pkg/config"
)

// missingSentinel stands in for unreadable files when digesting, so a file
// appearing or disappearing changes the digest just like an edit would.
const missingSentinel = "<missing>"

// DigestFiles computes a content digest over the given files. Paths are
// sorted first so the digest is independent of discovery order. Any read
// error contributes the missing sentinel; the digest itself never fails.
func DigestFiles(paths []string) string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	h := sha256.New()
	var lenBuf [8]byte
	for _, p := range sorted {
		h.Write([]byte(p))
		data, err := os.ReadFile(p)
		if err != nil {
			data = []byte(missingSentinel)
		}
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(data)))
		h.Write(lenBuf[:])
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Poller watches the engine's file set by digesting it on an interval and
// triggering a refresh when the digest moves. It is deliberately dumb: no
// mtimes, no inotify, just content. Every error along the way is swallowed;
// the poller must never take the service down.
type Poller struct {
	engine   *Engine
	interval time.Duration
	logger   *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewPoller creates a poller for the engine. Intervals below the floor are
// clamped.
func NewPoller(e *Engine, interval time.Duration) *Poller {
	if interval < config.MinPollInterval {
		interval = config.MinPollInterval
	}
	return &Poller{
		engine:   e,
		interval: interval,
		logger:   slog.Default().With("component", "poller"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the poll loop in its own goroutine.
func (p *Poller) Start(ctx context.Context) {
	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.doneCh)

	last := p.engine.Snapshot().Digest
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("freshness poller started", "interval", p.interval)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("freshness poller stopped (context cancelled)")
			return
		case <-p.stopCh:
			p.logger.Info("freshness poller stopped")
			return
		case <-ticker.C:
			current := DigestFiles(p.engine.WatchedFiles())
			if current == last {
				continue
			}
			p.logger.Info("watched files changed, refreshing snapshot")
			res := p.engine.Refresh(ctx)
			if res.Status == StatusRefreshed {
				// track the digest of the snapshot we just built, not the
				// one we observed, in case the files moved again meanwhile
				last = p.engine.Snapshot().Digest
			} else {
				last = current
			}
		}
	}
}

// Stop terminates the poll loop and waits for it to exit. Safe to call more
// than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	<-p.doneCh
}
