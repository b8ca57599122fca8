package clips

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/voiceclock/voiceclock/sequence"
)

// Watch drops cached decodings of clips whose files change until ctx is
// done.
func (l *Library) Watch(ctx context.Context) error {
	watcher, err := l.newWatcher()
	if err != nil {
		return err
	}
	return l.watch(ctx, watcher)
}

func (l *Library) newWatcher() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("error adding %s to fsnotify watcher: %w", l.dir, err)
	}
	l.logger.Debug("Watching clip directory", "dir", l.dir)
	return watcher, nil
}

func (l *Library) watch(ctx context.Context, watcher *fsnotify.Watcher) error {
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			clip, ok := clipFromPath(event.Name)
			if !ok {
				continue
			}
			if n := l.Invalidate(clip); n > 0 {
				l.logger.Debug("Clip changed", "clip", clip, "event", event.Op, "dropped", n)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("fsnotify error", "error", err)
		}
	}
}

func clipFromPath(path string) (sequence.ClipID, bool) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if !supported(ext) {
		return "", false
	}
	return sequence.ClipID(strings.TrimSuffix(base, ext)), true
}
