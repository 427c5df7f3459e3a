package input

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"strongholdcore/pkg/domain"
)

// Command names a hotkey action.
type Command string

const (
	CommandReset     Command = "reset"
	CommandUndo      Command = "undo"
	CommandIncrement Command = "increment"
	CommandDecrement Command = "decrement"
	CommandAltStd    Command = "altstd"
	CommandBoat      Command = "boat"
	CommandLock      Command = "lock"
	// CommandForce asks the poller to read the source now.
	CommandForce Command = "force"
)

var commands = map[Command]bool{
	CommandReset: true, CommandUndo: true, CommandIncrement: true, CommandDecrement: true,
	CommandAltStd: true, CommandBoat: true, CommandLock: true, CommandForce: true,
}

// ParseCommand resolves a command name, case-insensitively.
func ParseCommand(name string) (Command, error) {
	c := Command(strings.ToLower(strings.TrimSpace(name)))
	if !commands[c] {
		return "", fmt.Errorf("unknown command %q", name)
	}
	return c, nil
}

// Target is the mutation surface commands and observations are routed to.
// *core.StateHandler implements it.
type Target interface {
	AppendThrow(ctx context.Context, t domain.Throw)
	UndoIfNotLocked(ctx context.Context)
	ChangeLastAngleIfNotLocked(ctx context.Context, positive bool)
	ToggleAltStdOnLastThrowIfNotLocked(ctx context.Context)
	ToggleEnteringBoatIfNotLocked(ctx context.Context)
	ToggleLocked(ctx context.Context)
	ResetIfNotLocked(ctx context.Context)
}

// Dispatcher routes commands, key presses and observation text to a Target.
type Dispatcher struct {
	target Target
	forcer Forcer
	keys   map[string]Command
	logger *slog.Logger
}

// NewDispatcher builds a dispatcher. keymap maps key names to command names;
// forcer may be nil when no poller runs.
func NewDispatcher(target Target, forcer Forcer, keymap map[string]string, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	keys := make(map[string]Command, len(keymap))
	for key, name := range keymap {
		c, err := ParseCommand(name)
		if err != nil {
			return nil, fmt.Errorf("hotkey %s: %w", key, err)
		}
		keys[strings.ToLower(key)] = c
	}
	return &Dispatcher{target: target, forcer: forcer, keys: keys, logger: logger}, nil
}

// Keys returns the bound key names in sorted order.
func (d *Dispatcher) Keys() []string {
	out := make([]string, 0, len(d.keys))
	for k := range d.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs one command.
func (d *Dispatcher) Dispatch(ctx context.Context, c Command) {
	switch c {
	case CommandReset:
		d.target.ResetIfNotLocked(ctx)
	case CommandUndo:
		d.target.UndoIfNotLocked(ctx)
	case CommandIncrement:
		d.target.ChangeLastAngleIfNotLocked(ctx, true)
	case CommandDecrement:
		d.target.ChangeLastAngleIfNotLocked(ctx, false)
	case CommandAltStd:
		d.target.ToggleAltStdOnLastThrowIfNotLocked(ctx)
	case CommandBoat:
		d.target.ToggleEnteringBoatIfNotLocked(ctx)
	case CommandLock:
		d.target.ToggleLocked(ctx)
	case CommandForce:
		if d.forcer != nil {
			d.forcer.ForceRead()
		}
	default:
		d.logger.Debug("ignoring unknown command", "command", string(c))
	}
}

// HandleKey dispatches the command bound to key and reports whether one was.
func (d *Dispatcher) HandleKey(ctx context.Context, key string) bool {
	c, ok := d.keys[strings.ToLower(strings.TrimSpace(key))]
	if ok {
		d.Dispatch(ctx, c)
	}
	return ok
}

// Observe parses text as an F3+C observation and appends it. Malformed text
// is logged and skipped.
func (d *Dispatcher) Observe(ctx context.Context, text string) {
	t, err := ParseObservation(text)
	if err != nil {
		d.logger.Warn("skipping observation", "error", err)
		return
	}
	d.target.AppendThrow(ctx, t)
}

// Route treats a line as a key, then a command name, then an observation.
func (d *Dispatcher) Route(ctx context.Context, line string) {
	if d.HandleKey(ctx, line) {
		return
	}
	if c, err := ParseCommand(line); err == nil {
		d.Dispatch(ctx, c)
		return
	}
	d.Observe(ctx, line)
}
