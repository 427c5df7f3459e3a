package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"strongholdcore/internal/estimator"
	"strongholdcore/pkg/domain"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Archiver receives finished sessions. Implementations must not block on I/O.
type Archiver interface {
	Archive(ctx context.Context, session Session) error
}

// Settings are the live-reloadable knobs of a StateHandler.
type Settings struct {
	Parameters      Parameters
	UndoLimit       int
	LockedByDefault bool
	AutoReset       AutoReset
}

// DefaultSettings returns the calibrated parameters with auto reset disabled.
func DefaultSettings() Settings {
	return Settings{
		Parameters: domain.DefaultParameters(),
		UndoLimit:  DefaultUndoLimit,
		AutoReset:  AutoReset{After: 15 * time.Minute},
	}
}

// Validate reports invalid settings.
func (s Settings) Validate() error {
	var errs []error
	if err := s.Parameters.Validate(); err != nil {
		errs = append(errs, err)
	}
	if s.UndoLimit < 0 {
		errs = append(errs, errors.New("undo_limit must not be negative"))
	}
	if s.AutoReset.Enabled && s.AutoReset.After <= 0 {
		errs = append(errs, errors.New("auto_reset_after must be positive when auto reset is enabled"))
	}
	return errors.Join(errs...)
}

// Option customizes a StateHandler.
type Option func(*StateHandler)

// WithLogger overrides the logger; nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *StateHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithClock overrides the time source used for throw and session timestamps.
func WithClock(clock Clock) Option {
	return func(h *StateHandler) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithRules replaces the default advisory rules.
func WithRules(engine *RulesEngine) Option {
	return func(h *StateHandler) {
		if engine != nil {
			h.rules = engine
		}
	}
}

// WithArchiver receives every session ended by a reset.
func WithArchiver(a Archiver) Option {
	return func(h *StateHandler) { h.archiver = a }
}

// WithAfterFunc overrides the scheduler behind auto reset.
func WithAfterFunc(f AfterFunc) Option {
	return func(h *StateHandler) {
		if f != nil {
			h.afterFunc = f
		}
	}
}

type sessionMeta struct {
	id      string
	started time.Time
}

// StateHandler owns the throw log and lock, and serializes every mutation:
// read, write, recompute and publish run inside one critical section, so no
// subscriber ever observes partial state.
type StateHandler struct {
	mu        sync.Mutex
	settings  Settings
	estimator *estimator.Estimator
	log       *ThrowLog
	lock      *LockController
	rules     *RulesEngine
	archiver  Archiver
	logger    *slog.Logger
	clock     Clock
	afterFunc AfterFunc

	session sessionMeta
	stashed sessionMeta

	seq     uint64
	current Snapshot
	subs    map[uint64]chan Snapshot
	nextSub uint64
	closed  bool
}

// NewStateHandler validates settings and builds a handler with an empty log.
func NewStateHandler(settings Settings, opts ...Option) (*StateHandler, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("state handler settings: %w", err)
	}
	est, err := estimator.New(settings.Parameters)
	if err != nil {
		return nil, err
	}
	h := &StateHandler{
		settings:  settings,
		estimator: est,
		rules:     NewDefaultRulesEngine(),
		logger:    slog.Default(),
		clock:     ClockFunc(func() time.Time { return time.Now().UTC() }),
		subs:      make(map[uint64]chan Snapshot),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.lock = NewLockController(settings.LockedByDefault, settings.AutoReset, h.afterFunc)
	h.log = NewThrowLog(settings.UndoLimit, h.lock)
	h.recomputeLocked(context.Background(), "init")
	return h, nil
}

// mutate runs fn and, when it succeeds, recomputes and publishes before
// returning. Rejections are logged and leave every piece of state untouched.
func (h *StateHandler) mutate(ctx context.Context, op string, fn func() error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	err := fn()
	outcome := outcomeOf(err)
	mutationsTotal.WithLabelValues(op, outcome).Inc()
	switch outcome {
	case outcomeApplied:
		h.recomputeLocked(ctx, op)
	case outcomeLocked, outcomeNoop:
		h.logger.Debug("mutation ignored", "op", op, "reason", err)
	case outcomeInvalid:
		skippedInputsTotal.WithLabelValues("invalid").Inc()
		h.logger.Warn("skipping malformed observation", "op", op, "error", err)
	default:
		h.logger.Error("mutation failed", "op", op, "error", err)
	}
}

// AppendThrow validates and appends an observation.
func (h *StateHandler) AppendThrow(ctx context.Context, t Throw) {
	h.mutate(ctx, "append", func() error {
		if err := t.Validate(); err != nil {
			return domain.MalformedObservationError{Reason: err.Error()}
		}
		t = t.Clone()
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Kind == "" {
			t.Kind = KindStandard
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = h.clock.Now()
		}
		t.Angle = domain.NormalizeAngle(t.Angle)
		wasEmpty := h.log.Len() == 0
		if _, err := h.log.Append(t); err != nil {
			return err
		}
		if wasEmpty {
			h.session = sessionMeta{id: uuid.NewString(), started: h.clock.Now()}
		}
		h.lock.Arm(h.autoResetFired)
		return nil
	})
}

// UndoIfNotLocked reverts the most recent mutation.
func (h *StateHandler) UndoIfNotLocked(ctx context.Context) {
	h.mutate(ctx, "undo", func() error {
		wasEmpty := h.log.Len() == 0
		if err := h.log.Undo(); err != nil {
			return err
		}
		switch {
		case h.log.Len() == 0:
			h.session = sessionMeta{}
		case wasEmpty && h.stashed.id != "":
			h.session, h.stashed = h.stashed, sessionMeta{}
		case wasEmpty:
			h.session = sessionMeta{id: uuid.NewString(), started: h.clock.Now()}
		}
		return nil
	})
}

// ChangeLastAngleIfNotLocked nudges the last throw's angle by one correction step.
func (h *StateHandler) ChangeLastAngleIfNotLocked(ctx context.Context, positive bool) {
	op, steps := "angle_increment", 1
	if !positive {
		op, steps = "angle_decrement", -1
	}
	h.mutate(ctx, op, func() error {
		return h.log.AmendLast(AdjustAngle(steps))
	})
}

// ToggleAltStdOnLastThrowIfNotLocked switches the last throw between the
// standard and alternate error model.
func (h *StateHandler) ToggleAltStdOnLastThrowIfNotLocked(ctx context.Context) {
	h.mutate(ctx, "toggle_alt_std", func() error {
		return h.log.AmendLast(ToggleKind())
	})
}

// ToggleEnteringBoatIfNotLocked flips the boat flag of the last throw.
func (h *StateHandler) ToggleEnteringBoatIfNotLocked(ctx context.Context) {
	h.mutate(ctx, "toggle_boat", func() error {
		return h.log.AmendLast(ToggleBoat())
	})
}

// ToggleLocked flips the lock. It is always permitted.
func (h *StateHandler) ToggleLocked(ctx context.Context) {
	h.mutate(ctx, "toggle_lock", func() error {
		locked := h.lock.Toggle()
		h.logger.Info("throw log lock changed", "locked", locked)
		return nil
	})
}

// ResetIfNotLocked archives the current session and clears the log.
func (h *StateHandler) ResetIfNotLocked(ctx context.Context) {
	h.mutate(ctx, "reset", func() error {
		if err := h.lock.Permit(); err != nil {
			return err
		}
		h.archiveLocked(ctx, domain.ResetManual)
		h.lock.Stop()
		return h.log.Clear()
	})
}

// autoResetFired runs on the timer goroutine and goes through the same
// critical section as every other mutation.
func (h *StateHandler) autoResetFired(generation uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || !h.lock.Due(generation) || h.log.Len() == 0 {
		return
	}
	ctx := context.Background()
	h.archiveLocked(ctx, domain.ResetAuto)
	if err := h.log.Clear(); err != nil {
		mutationsTotal.WithLabelValues("auto_reset", outcomeOf(err)).Inc()
		h.logger.Debug("auto reset skipped", "reason", err)
		return
	}
	mutationsTotal.WithLabelValues("auto_reset", outcomeApplied).Inc()
	h.logger.Info("auto reset cleared throw log")
	h.recomputeLocked(ctx, "auto_reset")
}

func (h *StateHandler) archiveLocked(ctx context.Context, reason domain.ResetReason) {
	if h.log.Len() == 0 {
		return
	}
	meta := h.session
	if meta.id == "" {
		meta = sessionMeta{id: uuid.NewString(), started: h.clock.Now()}
	}
	h.stashed, h.session = meta, sessionMeta{}
	if h.archiver == nil {
		return
	}
	session := Session{
		ID:        meta.id,
		StartedAt: meta.started,
		EndedAt:   h.clock.Now(),
		Reason:    reason,
		Throws:    h.log.Throws(),
		Estimate:  h.current.Estimate.Clone(),
	}
	if err := h.archiver.Archive(ctx, session); err != nil {
		h.logger.Error("archive session", "session", session.ID, "error", err)
	}
}

// ApplyConfig re-applies settings live and republishes. The lock state is
// kept; LockedByDefault only matters at construction.
func (h *StateHandler) ApplyConfig(ctx context.Context, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("apply config: %w", err)
	}
	est, err := estimator.New(settings.Parameters)
	if err != nil {
		return fmt.Errorf("apply config: %w", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.settings = settings
	h.estimator = est
	h.log.SetLimit(settings.UndoLimit)
	h.lock.Configure(settings.AutoReset)
	if h.log.Len() > 0 {
		h.lock.Arm(h.autoResetFired)
	}
	mutationsTotal.WithLabelValues("config", outcomeApplied).Inc()
	h.recomputeLocked(ctx, "config")
	return nil
}

func (h *StateHandler) recomputeLocked(ctx context.Context, cause string) {
	ctx, span := tracer.Start(ctx, "core.recompute", trace.WithAttributes(attribute.String("cause", cause)))
	defer span.End()
	start := time.Now()

	throws := h.log.Throws()
	est := h.estimator.Estimate(throws)
	if est.Err != nil {
		h.logger.Debug("estimate withheld", "throws", len(throws), "reason", est.Err)
	}
	res, err := h.rules.Evaluate(ctx, newCycleView(throws, est, h.settings.Parameters))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "advisory evaluation failed")
		h.logger.Error("advisory evaluation failed", "error", err)
		res = Result{}
	}

	recomputeDuration.Observe(time.Since(start).Seconds())
	certaintyGauge.Set(est.Certainty)
	throwsGauge.Set(float64(len(throws)))
	span.SetAttributes(
		attribute.Int("throws", len(throws)),
		attribute.Float64("certainty", est.Certainty),
		attribute.Int("advisories", len(res.Advisories)),
	)

	h.seq++
	h.current = Snapshot{
		Seq:        h.seq,
		Cause:      cause,
		Throws:     throws,
		Locked:     h.lock.Locked(),
		UndoDepth:  h.log.UndoDepth(),
		Estimate:   est,
		Advisories: res.Advisories,
		CreatedAt:  h.clock.Now(),
	}
	for _, ch := range h.subs {
		offer(ch, h.current.Clone())
	}
}

// Subscribe returns a channel that always holds the latest snapshot, starting
// with the current one, and a func that cancels the subscription.
func (h *StateHandler) Subscribe() (<-chan Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Snapshot, 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextSub
	h.nextSub++
	h.subs[id] = ch
	ch <- h.current.Clone()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Snapshot returns the latest published snapshot.
func (h *StateHandler) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current.Clone()
}

// Locked reports the lock state.
func (h *StateHandler) Locked() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lock.Locked()
}

// Len returns the number of throws.
func (h *StateHandler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.log.Len()
}

// Estimate returns the latest estimate.
func (h *StateHandler) Estimate() Estimate {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current.Estimate.Clone()
}

// Advisories returns the latest advisories.
func (h *StateHandler) Advisories() []Advisory {
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneAdvisories(h.current.Advisories)
}

// Settings returns the active settings.
func (h *StateHandler) Settings() Settings {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.settings
}

// Close stops the auto-reset timer and closes every subscription. Later
// mutations are ignored.
func (h *StateHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.lock.Stop()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
