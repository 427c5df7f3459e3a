package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// TextSource yields the current text of an observation source, such as a
// file the game or an external clipboard bridge writes to.
type TextSource interface {
	ReadText(ctx context.Context) (string, error)
}

// FileSource reads a whole file on every poll. A missing file reads as empty.
type FileSource struct {
	Path string
}

// ReadText implements TextSource.
func (s FileSource) ReadText(context.Context) (string, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.Path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Forcer is notified when a source should be read out of schedule.
type Forcer interface {
	ForceRead()
}

// WatchFile forces a read whenever path is written, so a poller in
// alternate mode still picks up changes. It blocks until ctx is cancelled.
func WatchFile(ctx context.Context, path string, f Forcer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create input watcher: %w", err)
	}
	defer watcher.Close()
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) == target && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				f.ForceRead()
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}

// ScanLines calls fn for every non-empty line of r until r is exhausted or
// ctx is cancelled.
func ScanLines(ctx context.Context, r io.Reader, fn func(context.Context, string)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			fn(ctx, line)
		}
	}
	return scanner.Err()
}
