package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/vibetemplate/prompthub/internal/adapter"
	"github.com/vibetemplate/prompthub/internal/logging"
)

// ProfileStore hot-reloads a directory of per-site selector-profile YAML
// files (spec.md §2, C1) via fsnotify, so Get and All reflect added or
// edited files without a restart (grounded on the teacher's general
// config-file-watching use of fsnotify). The built-in adapters are not
// rebuilt from the store: they keep the selectors they were constructed with.
type ProfileStore struct {
	dir     string
	current atomic.Pointer[map[string]adapter.SelectorProfile]
	log     *slog.Logger
	watcher *fsnotify.Watcher
}

// NewProfileStore loads dir once synchronously, then returns a store ready
// to be watched via Watch.
func NewProfileStore(dir string) (*ProfileStore, error) {
	s := &ProfileStore{dir: dir, log: logging.Named("profile-store")}
	profiles, err := loadProfileDir(dir)
	if err != nil {
		return nil, err
	}
	s.current.Store(&profiles)
	return s, nil
}

// Get returns the currently-loaded profile for a website id, and whether
// one is configured.
func (s *ProfileStore) Get(websiteID string) (adapter.SelectorProfile, bool) {
	m := *s.current.Load()
	p, ok := m[websiteID]
	return p, ok
}

// All returns a snapshot of every loaded profile, keyed by website id.
func (s *ProfileStore) All() map[string]adapter.SelectorProfile {
	m := *s.current.Load()
	out := make(map[string]adapter.SelectorProfile, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Watch starts an fsnotify watcher on the profile directory and reloads on
// every write/create/rename/remove event until stop is closed. A reload that
// fails (one unreadable or unparsable file fails the whole reload) is logged
// and the previous snapshot is kept, so one bad edit doesn't blank out the
// rest of the directory.
func (s *ProfileStore) Watch(stop <-chan struct{}) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting selector-profile watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watching %s: %w", s.dir, err)
	}
	s.watcher = w

	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				profiles, err := loadProfileDir(s.dir)
				if err != nil {
					s.log.Warn("selector-profile reload failed, keeping previous snapshot", "error", err)
					continue
				}
				s.current.Store(&profiles)
				s.log.Info("selector profiles reloaded", "count", len(profiles))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn("selector-profile watcher error", "error", err)
			case <-stop:
				return
			}
		}
	}()
	return nil
}

// loadProfileDir reads every *.yaml/*.yml file in dir, keyed by filename
// (minus extension) as the website id.
func loadProfileDir(dir string) (map[string]adapter.SelectorProfile, error) {
	out := make(map[string]adapter.SelectorProfile)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("reading selector-profile directory %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		var profile adapter.SelectorProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}

		id := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		out[id] = profile
	}

	return out, nil
}
