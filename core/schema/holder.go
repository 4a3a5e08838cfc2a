package schema

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder provides thread-safe access to a resolved schema with hot
// reload. It watches the schema roots for changes and swaps in a newly
// resolved set; when loading or resolution fails the previous schema
// stays in place. The Holder guards only the read-mostly schema, never
// an entity store.
type Holder struct {
	mu       sync.RWMutex
	resolved *Resolved
	paths    []string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Resolved)
	stopCh   chan struct{}
}

// NewHolder loads and resolves the schema from the given paths (files,
// directories or glob patterns) and wraps it in a Holder.
func NewHolder(paths []string, logger zerolog.Logger) (*Holder, error) {
	resolved, err := loadResolved(paths)
	if err != nil {
		return nil, err
	}

	return &Holder{
		resolved: resolved,
		paths:    paths,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

func loadResolved(paths []string) (*Resolved, error) {
	set, err := LoadPaths(paths)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	resolved, err := set.Resolve()
	if err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}
	return resolved, nil
}

// Get returns the current resolved schema.
func (h *Holder) Get() *Resolved {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.resolved
}

// Reload loads and resolves the schema again. On failure the previous
// schema is kept and the error returned.
func (h *Holder) Reload() error {
	h.logger.Info().Strs("paths", h.paths).Msg("reloading schema")

	resolved, err := loadResolved(h.paths)
	if err != nil {
		h.logger.Error().Err(err).Msg("schema reload failed, keeping old schema")
		return fmt.Errorf("reload schema: %w", err)
	}

	h.mu.Lock()
	old := h.resolved
	h.resolved = resolved
	listeners := append(([]func(*Resolved))(nil), h.onChange...)
	h.mu.Unlock()

	if old.Len() != resolved.Len() {
		h.logger.Info().
			Int("old", old.Len()).
			Int("new", resolved.Len()).
			Msg("class count changed")
	}

	for _, fn := range listeners {
		fn(resolved)
	}

	h.logger.Info().Msg("schema reloaded successfully")
	return nil
}

// OnChange registers a callback invoked after each successful reload.
func (h *Holder) OnChange(fn func(*Resolved)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// Watch starts watching the schema roots for changes. Changes to YAML
// files trigger an automatic reload.
func (h *Holder) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	for _, p := range h.paths {
		dir := p
		if containsGlob(p) {
			dir = globBase(p)
		} else if isSchemaFile(p) {
			// watch the directory, more reliable for editors that do
			// atomic saves
			dir = filepath.Dir(p)
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	go h.watchLoop()

	h.logger.Info().Strs("paths", h.paths).Msg("watching schema for changes")
	return nil
}

// Stop stops watching for changes.
func (h *Holder) Stop() {
	close(h.stopCh)
	if h.watcher != nil {
		h.watcher.Close()
	}
}

func (h *Holder) watchLoop() {
	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			if !isSchemaFile(event.Name) {
				continue
			}

			// react to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("schema file changed")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

// globBase returns the fixed directory prefix of a glob pattern.
func globBase(pattern string) string {
	base := pattern
	for containsGlob(base) {
		base = filepath.Dir(base)
	}
	if base == "" {
		return "."
	}
	return base
}
