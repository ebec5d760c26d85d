package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultWatchDebounce = 500 * time.Millisecond

// Watch observes every existing root search directory. Any change clears the
// format cache and, after debounce of quiet time, calls onChange once. It
// returns after the watcher is set up; watching stops when ctx is done.
func (r *Registry) Watch(ctx context.Context, debounce time.Duration, onChange func()) error {
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	added := 0
	for _, root := range r.Dirs(true) {
		for _, d := range searchDirs(root) {
			if err := w.Add(d.path); err != nil {
				r.log.Warn().Err(err).Str("dir", d.path).Msg("cannot watch model dir")
				continue
			}
			added++
		}
	}
	r.log.Debug().Int("dirs", added).Msg("watching model dirs")

	go func() {
		defer w.Close()
		var timer *time.Timer
		fire := make(chan struct{}, 1)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				r.cache.Invalidate()
				r.log.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("model dir changed")
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			case <-fire:
				if onChange != nil {
					onChange()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				r.log.Warn().Err(err).Msg("model dir watcher error")
			}
		}
	}()
	return nil
}
