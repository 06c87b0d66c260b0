package server

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
)

// reloadDebounce coalesces the bursts of writes editors and atomic renames
// produce for a single save.
const reloadDebounce = 500 * time.Millisecond

// reloader owns the background maintenance of a running server: reloading
// the pipeline when its definition file changes, and rebuilding plugin
// registry entries on a cron schedule.
type reloader struct {
	srv     *Server
	watcher *fsnotify.Watcher
	cron    *cron.Cron
	done    chan struct{}
}

func newReloader(s *Server) (*reloader, error) {
	r := &reloader{srv: s, done: make(chan struct{})}

	if s.cfg.Pipeline.WatchFile {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("creating pipeline watcher: %w", err)
		}
		// Watch the directory: editors replace files rather than write
		// them in place, which drops the watch on the file itself.
		if err := watcher.Add(filepath.Dir(s.cfg.Pipeline.File)); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watching pipeline file %s: %w", s.cfg.Pipeline.File, err)
		}
		r.watcher = watcher
		go r.watchLoop()
		s.logger.WithField("file", s.cfg.Pipeline.File).Info("watching pipeline definition")
	}

	if s.cfg.Pipeline.RebuildSchedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(s.cfg.Pipeline.RebuildSchedule, r.rebuildAll); err != nil {
			r.stop()
			return nil, fmt.Errorf("invalid rebuild schedule %q: %w", s.cfg.Pipeline.RebuildSchedule, err)
		}
		c.Start()
		r.cron = c
		s.logger.WithField("schedule", s.cfg.Pipeline.RebuildSchedule).Info("scheduled registry rebuilds")
	}

	return r, nil
}

func (r *reloader) watchLoop() {
	target := filepath.Clean(r.srv.cfg.Pipeline.File)
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-r.done:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(reloadDebounce, func() {
				if err := r.srv.reloadPipeline(); err != nil {
					r.srv.logger.WithError(err).Error("reloading pipeline definition")
					return
				}
				r.srv.logger.WithField("file", target).Info("pipeline definition reloaded")
			})
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.srv.logger.WithError(err).Warn("pipeline watcher error")
		}
	}
}

// rebuildAll rescans modules for every registered interface.
func (r *reloader) rebuildAll() {
	for _, name := range r.srv.registry.Interfaces() {
		entry, err := r.srv.registry.Rebuild(name)
		if err != nil {
			if r.srv.metrics != nil {
				r.srv.metrics.ModuleScansTotal.WithLabelValues(name, "error").Inc()
			}
			r.srv.logger.WithError(err).WithField("interface", name).Error("scheduled registry rebuild failed")
			continue
		}
		if r.srv.metrics != nil {
			r.srv.metrics.ModuleScansTotal.WithLabelValues(name, "ok").Inc()
			r.srv.metrics.RegistryRebuildsTotal.WithLabelValues(name).Inc()
			r.srv.metrics.ImplementationsVisible.WithLabelValues(name).Set(float64(entry.Len()))
		}
	}
	r.srv.logger.Debug("scheduled registry rebuild complete")
}

func (r *reloader) stop() {
	close(r.done)
	if r.watcher != nil {
		r.watcher.Close()
	}
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}
