package core

import (
	"time"

	"strongholdcore/pkg/domain"
)

// Timer is the subset of *time.Timer the lock controller relies on.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// AutoReset configures the idle reset of an unlocked log.
type AutoReset struct {
	Enabled bool
	After   time.Duration
}

// LockController holds the lock flag and the auto-reset timer. While locked,
// every log mutation other than toggling the lock is refused. It is not safe
// for concurrent use; StateHandler serializes access.
type LockController struct {
	locked     bool
	auto       AutoReset
	afterFunc  AfterFunc
	timer      Timer
	generation uint64
}

// NewLockController constructs a controller. A nil afterFunc uses time.AfterFunc.
func NewLockController(locked bool, auto AutoReset, afterFunc AfterFunc) *LockController {
	if afterFunc == nil {
		afterFunc = realAfterFunc
	}
	return &LockController{locked: locked, auto: auto, afterFunc: afterFunc}
}

// Locked reports the current flag.
func (c *LockController) Locked() bool { return c.locked }

// Permit implements Gate.
func (c *LockController) Permit() error {
	if c.locked {
		return domain.ErrLocked
	}
	return nil
}

// Toggle flips the flag and returns the new value. Locking cancels a pending
// auto reset.
func (c *LockController) Toggle() bool {
	c.locked = !c.locked
	if c.locked {
		c.Stop()
	}
	return c.locked
}

// Configure replaces the auto-reset settings and cancels any pending reset.
func (c *LockController) Configure(auto AutoReset) {
	c.auto = auto
	c.Stop()
}

// Arm (re)starts the auto-reset countdown. fire receives the generation the
// countdown was armed with; a later Arm or Stop invalidates it.
func (c *LockController) Arm(fire func(generation uint64)) {
	c.Stop()
	if c.locked || !c.auto.Enabled || c.auto.After <= 0 {
		return
	}
	gen := c.generation
	c.timer = c.afterFunc(c.auto.After, func() { fire(gen) })
}

// Stop cancels a pending countdown.
func (c *LockController) Stop() {
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Due reports whether a countdown armed at generation should still clear the log.
func (c *LockController) Due(generation uint64) bool {
	return generation == c.generation && !c.locked && c.auto.Enabled
}
