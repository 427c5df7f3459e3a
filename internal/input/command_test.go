package input

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

	"strongholdcore/internal/core"
	"strongholdcore/pkg/domain"
)

var _ Target = (*core.StateHandler)(nil)

type recordingTarget struct {
	mu     sync.Mutex
	calls  []string
	throws []domain.Throw
}

func (r *recordingTarget) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recordingTarget) AppendThrow(_ context.Context, t domain.Throw) {
	r.mu.Lock()
	r.throws = append(r.throws, t)
	r.mu.Unlock()
	r.record("append")
}
func (r *recordingTarget) UndoIfNotLocked(context.Context) { r.record("undo") }
func (r *recordingTarget) ChangeLastAngleIfNotLocked(_ context.Context, positive bool) {
	if positive {
		r.record("increment")
		return
	}
	r.record("decrement")
}
func (r *recordingTarget) ToggleAltStdOnLastThrowIfNotLocked(context.Context) { r.record("altstd") }
func (r *recordingTarget) ToggleEnteringBoatIfNotLocked(context.Context)      { r.record("boat") }
func (r *recordingTarget) ToggleLocked(context.Context)                       { r.record("lock") }
func (r *recordingTarget) ResetIfNotLocked(context.Context)                   { r.record("reset") }

type countingForcer struct{ n int }

func (c *countingForcer) ForceRead() { c.n++ }

func TestDispatcherRoutesCommandsKeysAndObservations(t *testing.T) {
	ctx := context.Background()
	target := &recordingTarget{}
	forcer := &countingForcer{}
	d, err := NewDispatcher(target, forcer, map[string]string{"F7": "undo", "shift+c": "force"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"f7", "shift+c"}, d.Keys())

	for _, line := range []string{"f7", "increment", "DECREMENT", "altstd", "boat", "lock", "reset", "Shift+C"} {
		d.Route(ctx, line)
	}
	d.Route(ctx, "/execute in minecraft:overworld run tp @s 10 64 20 30 -10")
	d.Route(ctx, "garbage")

	assert.Equal(t, []string{"undo", "increment", "decrement", "altstd", "boat", "lock", "reset", "append"}, target.calls)
	assert.Equal(t, 1, forcer.n)
	require.Len(t, target.throws, 1)
	assert.Equal(t, domain.Vec2{X: 10, Z: 20}, target.throws[0].Position)
}

func TestNewDispatcherRejectsUnknownCommand(t *testing.T) {
	_, err := NewDispatcher(&recordingTarget{}, nil, map[string]string{"f1": "teleport"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleport")
}

func TestScanLinesFeedsStateHandler(t *testing.T) {
	h, err := core.NewStateHandler(core.DefaultSettings())
	require.NoError(t, err)
	defer h.Close()
	d, err := NewDispatcher(h, nil, nil, nil)
	require.NoError(t, err)

	in := strings.Join([]string{
		"/execute in minecraft:overworld run tp @s 0 64 0 -45 -30",
		"/execute in minecraft:overworld run tp @s 100 64 0 0 -30",
		"",
		"undo",
		"lock",
		"reset",
	}, "\n")
	require.NoError(t, ScanLines(context.Background(), strings.NewReader(in), d.Route))
	assert.Equal(t, 1, h.Len())
	assert.True(t, h.Locked())
}

func TestFileSourceAndWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.txt")
	text, err := FileSource{Path: path}.ReadText(context.Background())
	require.NoError(t, err)
	assert.Empty(t, text)

	forcer := &syncForcer{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = WatchFile(ctx, path, forcer) }()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(" hello \n"), 0o644)
		return forcer.count() > 0
	}, 2*time.Second, 20*time.Millisecond)

	text, err = FileSource{Path: path}.ReadText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

type syncForcer struct {
	mu sync.Mutex
	n  int
}

func (s *syncForcer) ForceRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
}

func (s *syncForcer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
