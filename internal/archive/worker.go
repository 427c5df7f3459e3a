package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"strongholdcore/internal/blob"
	"strongholdcore/internal/core"
	"strongholdcore/pkg/domain"
)

var _ core.Archiver = (*Worker)(nil)

// ErrQueueFull is returned by Archive when the worker cannot accept more work.
var ErrQueueFull = errors.New("archive queue full")

// ErrStopped is returned by Archive after Stop.
var ErrStopped = errors.New("archive worker stopped")

const (
	// DefaultQueueSize bounds pending sessions.
	DefaultQueueSize = 16
	// DefaultPrefix is prepended to export keys.
	DefaultPrefix = "sessions/"
	saveTimeout   = 30 * time.Second
)

var archivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "strongholdcore_archived_sessions_total",
	Help: "Finished sessions processed by the archive worker.",
}, []string{"stage", "outcome"})

// Options configures a Worker.
type Options struct {
	QueueSize int
	// Prefix is prepended to "<session id>.json" export keys.
	Prefix string
	Logger *slog.Logger
}

// Worker saves sessions to a store and optionally exports them as JSON blobs.
type Worker struct {
	store   domain.SessionStore
	exports blob.Store
	prefix  string
	logger  *slog.Logger

	queue chan domain.Session

	mu      sync.RWMutex
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker constructs a worker; exports may be nil to disable blob exports.
func NewWorker(store domain.SessionStore, exports blob.Store, opts Options) *Worker {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		store:   store,
		exports: exports,
		prefix:  opts.Prefix,
		logger:  opts.Logger,
		queue:   make(chan domain.Session, opts.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins processing queued sessions.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop refuses new work, processes what is already queued and waits for the
// loop to finish or ctx to expire.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Archive enqueues session without blocking.
func (w *Worker) Archive(_ context.Context, session domain.Session) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrStopped
	}
	select {
	case w.queue <- session.Clone():
		return nil
	default:
		archivedTotal.WithLabelValues("enqueue", "dropped").Inc()
		return fmt.Errorf("session %s: %w", session.ID, ErrQueueFull)
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			return
		case session := <-w.queue:
			w.process(session)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case session := <-w.queue:
			w.process(session)
		default:
			return
		}
	}
}

func (w *Worker) process(session domain.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	logger := w.logger.With("session", session.ID, "reason", session.Reason, "throws", len(session.Throws))

	if err := w.store.SaveSession(ctx, session); err != nil {
		archivedTotal.WithLabelValues("save", "error").Inc()
		logger.Error("save session failed", "error", err)
	} else {
		archivedTotal.WithLabelValues("save", "ok").Inc()
		logger.Debug("session saved")
	}

	if w.exports == nil {
		return
	}
	if _, err := Export(ctx, w.exports, w.prefix, session); err != nil {
		archivedTotal.WithLabelValues("export", "error").Inc()
		logger.Error("export session failed", "error", err)
		return
	}
	archivedTotal.WithLabelValues("export", "ok").Inc()
}

// Export writes session as indented JSON under prefix.
func Export(ctx context.Context, exports blob.Store, prefix string, session domain.Session) (blob.Info, error) {
	payload, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode session: %w", err)
	}
	return exports.Put(ctx, ExportKey(prefix, session.ID), bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"reason": string(session.Reason)},
	})
}

// ExportKey names the blob a session is exported to.
func ExportKey(prefix, id string) string { return prefix + id + ".json" }
