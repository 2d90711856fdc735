package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

// filePattern selects template documents below the store directory
const filePattern = "**/*.{json,yaml,yml,toml}"

// FileStore serves templates from YAML, TOML and JSON documents in a
// directory tree, one template per file.
type FileStore struct {
	dir    string
	logger *zap.Logger

	mu        sync.RWMutex
	templates map[string]*types.Template
	byPath    map[string]string // path -> template id
}

// NewFileStore loads every template document below dir. A document that
// fails to decode is logged and skipped.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("template dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template dir %q is not a directory", dir)
	}

	s := &FileStore{
		dir:       dir,
		logger:    logger,
		templates: make(map[string]*types.Template),
		byPath:    make(map[string]string),
	}
	if err := s.loadAll(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) loadAll() error {
	matches, err := doublestar.Glob(os.DirFS(s.dir), filePattern)
	if err != nil {
		return fmt.Errorf("scan template dir: %w", err)
	}
	for _, rel := range matches {
		path := filepath.Join(s.dir, filepath.FromSlash(rel))
		if _, err := s.load(path); err != nil {
			s.logger.Warn("Skipping template document", zap.String("path", path), zap.Error(err))
		}
	}
	s.logger.Info("Template documents loaded", zap.String("dir", s.dir), zap.Int("templates", s.Len()))
	return nil
}

// load decodes one document and returns the ids it replaced or added.
func (s *FileStore) load(path string) ([]string, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	if t.UpdatedAt.IsZero() {
		// Edits to a document without updatedAt still move the version marker.
		if info, err := os.Stat(path); err == nil {
			t.UpdatedAt = info.ModTime().UTC()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := []string{t.TemplateID}
	if prev, ok := s.byPath[path]; ok && prev != t.TemplateID {
		delete(s.templates, prev)
		changed = append(changed, prev)
	}
	if other, ok := s.pathOf(t.TemplateID); ok && other != path {
		s.logger.Warn("Duplicate template id, later document wins",
			zap.String("template_id", t.TemplateID),
			zap.String("path", path),
			zap.String("previous_path", other))
		delete(s.byPath, other)
	}
	s.templates[t.TemplateID] = t
	s.byPath[path] = t.TemplateID
	return changed, nil
}

func (s *FileStore) pathOf(templateID string) (string, bool) {
	for p, id := range s.byPath {
		if id == templateID {
			return p, true
		}
	}
	return "", false
}

// forget drops the template loaded from path
func (s *FileStore) forget(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byPath[path]
	if !ok {
		return nil
	}
	delete(s.byPath, path)
	delete(s.templates, id)
	return []string{id}
}

func (s *FileStore) Get(_ context.Context, templateID string) (*types.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[templateID]
	if !ok {
		return nil, NotFound(templateID)
	}
	return clone(t), nil
}

// Len returns the number of loaded templates
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates)
}

// Watch reloads documents as they change until ctx ends. onChange receives
// the id of every template that was added, replaced or removed, so callers
// can drop cached copies and validations.
func (s *FileStore) Watch(ctx context.Context, onChange func(templateID string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := s.addDirs(w); err != nil {
		w.Close()
		return err
	}

	go s.watchLoop(ctx, w, onChange)
	return nil
}

func (s *FileStore) addDirs(w *fsnotify.Watcher) error {
	return filepath.WalkDir(s.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				return fmt.Errorf("watch %q: %w", path, err)
			}
		}
		return nil
	})
}

func (s *FileStore) watchLoop(ctx context.Context, w *fsnotify.Watcher, onChange func(string)) {
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			s.handle(w, ev, onChange)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("Template watcher error", zap.Error(err))
		}
	}
}

func (s *FileStore) handle(w *fsnotify.Watcher, ev fsnotify.Event, onChange func(string)) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.Add(ev.Name)
			return
		}
	}
	if _, ok := FormatOf(ev.Name); !ok {
		return
	}

	var changed []string
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		changed = s.forget(ev.Name)
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
		ids, err := s.load(ev.Name)
		if err != nil {
			s.logger.Warn("Failed to reload template document", zap.String("path", ev.Name), zap.Error(err))
			return
		}
		changed = ids
	}

	for _, id := range changed {
		s.logger.Info("Template document changed", zap.String("template_id", id), zap.String("op", ev.Op.String()))
		if onChange != nil {
			onChange(id)
		}
	}
}
