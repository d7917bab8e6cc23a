package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ErrEmptyIndex is returned when the index file has no content
var ErrEmptyIndex = errors.New("index file is empty")

// Index caches the document served for every request
type Index struct {
	path string

	mu   sync.RWMutex
	body []byte
}

func NewIndex(path string) *Index {
	return &Index{path: path}
}

// Load reads and caches the index file. A failed load keeps the previous content.
func (i *Index) Load() error {
	data, err := os.ReadFile(i.path)
	if err != nil {
		return fmt.Errorf("read index file: %w", err)
	}
	if len(data) == 0 {
		return ErrEmptyIndex
	}

	i.mu.Lock()
	i.body = data
	i.mu.Unlock()
	return nil
}

// Body returns the cached document. The slice is never mutated after Load, so callers share it.
func (i *Index) Body() []byte {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.body
}

// Watch reloads the index whenever its file is written, created or renamed into place.
// The directory is watched because editors often replace files instead of writing them.
// onReload is called after every attempt; Watch returns once ctx is done.
func (i *Index) Watch(ctx context.Context, logger zerolog.Logger, onReload func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create index watcher: %w", err)
	}

	target, err := filepath.Abs(i.path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("resolve index path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch index dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				err := i.Load()
				if err != nil {
					logger.Error().Err(err).Str("file", i.path).Msg("index reload failed")
				} else {
					logger.Info().Str("file", i.path).Int("bytes", len(i.Body())).Msg("index reloaded")
				}
				if onReload != nil {
					onReload(err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error().Err(err).Msg("index watcher error")
			}
		}
	}()

	return nil
}
