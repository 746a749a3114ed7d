package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/Nomadcxx/jellyname/internal/naming"
)

// ErrNotFound is returned when a session ID has no stored settings.
var ErrNotFound = errors.New("session not found")

// Settings is the per-session rename configuration. An empty field falls
// back to the store defaults when read through Get.
type Settings struct {
	Template string    `toml:"template"`
	Channel  string    `toml:"channel"`
	Created  time.Time `toml:"created"`
	Updated  time.Time `toml:"updated"`
}

// Entry pairs a session ID with its stored settings.
type Entry struct {
	ID       string
	Settings Settings
}

// Store keeps one Settings slot per session. Updating one session never
// touches another. All methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	path     string
	defaults Settings
	sessions map[string]Settings

	// changes since the last load or save, merged into the file on Save
	dirty   map[string]struct{}
	deleted map[string]struct{}
}

type storeFile struct {
	Sessions map[string]Settings `toml:"sessions"`
}

// NewID returns a fresh random session ID
func NewID() string {
	return uuid.NewString()
}

// NewStore returns an in-memory store. Save is a no-op.
func NewStore(defaults Settings) *Store {
	if defaults.Template == "" {
		defaults.Template = naming.DefaultTemplate
	}
	return &Store{
		defaults: defaults,
		sessions: make(map[string]Settings),
		dirty:    make(map[string]struct{}),
		deleted:  make(map[string]struct{}),
	}
}

// Open loads the store persisted at path. A missing file yields an empty store.
func Open(path string, defaults Settings) (*Store, error) {
	s := NewStore(defaults)
	s.path = path

	lock := flock.New(lockPath(path))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock session store: %w", err)
	}
	defer lock.Unlock()

	sessions, err := readFile(path)
	if err != nil {
		return nil, err
	}
	s.sessions = sessions
	return s, nil
}

func readFile(path string) (map[string]Settings, error) {
	var f storeFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]Settings), nil
		}
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	if f.Sessions == nil {
		f.Sessions = make(map[string]Settings)
	}
	return f.Sessions, nil
}

// Save merges the sessions this store created, changed or deleted into the
// file under an exclusive lock. Sessions written by other processes since
// Open are kept, and the store is refreshed with them.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}

	lock := flock.New(lockPath(s.path))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock session store: %w", err)
	}
	defer lock.Unlock()

	merged, err := readFile(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.deleted {
		delete(merged, id)
	}
	for id := range s.dirty {
		if settings, ok := s.sessions[id]; ok {
			merged[id] = settings
		}
	}
	f := storeFile{Sessions: merged}

	tmp := s.path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}

	if err := toml.NewEncoder(out).Encode(f); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write sessions: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write sessions: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	s.sessions = merged
	s.dirty = make(map[string]struct{})
	s.deleted = make(map[string]struct{})
	return nil
}

// Defaults returns the settings used for unknown sessions
func (s *Store) Defaults() Settings {
	return s.defaults
}

// Create registers a new session holding the defaults and returns its ID.
func (s *Store) Create() string {
	id := NewID()
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = Settings{Created: now, Updated: now}
	s.markDirty(id)
	return id
}

// Get returns a copy of the session's settings with defaults applied.
// Unknown sessions get the defaults.
func (s *Store) Get(id string) Settings {
	s.mu.Lock()
	settings, ok := s.sessions[id]
	s.mu.Unlock()

	if !ok {
		return s.defaults
	}
	return s.withDefaults(settings)
}

// Lookup is Get that reports unknown sessions as ErrNotFound.
func (s *Store) Lookup(id string) (Settings, error) {
	s.mu.Lock()
	settings, ok := s.sessions[id]
	s.mu.Unlock()

	if !ok {
		return Settings{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return s.withDefaults(settings), nil
}

// SetTemplate stores template for id only. An empty template restores the default.
func (s *Store) SetTemplate(id, template string) {
	s.update(id, func(settings *Settings) {
		settings.Template = template
	})
}

// SetChannel stores channel for id only.
func (s *Store) SetChannel(id, channel string) {
	s.update(id, func(settings *Settings) {
		settings.Channel = channel
	})
}

// Delete removes a session
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	delete(s.sessions, id)
	delete(s.dirty, id)
	s.deleted[id] = struct{}{}
	return nil
}

// List returns all sessions, oldest first.
func (s *Store) List() []Entry {
	s.mu.Lock()
	entries := make([]Entry, 0, len(s.sessions))
	for id, settings := range s.sessions {
		entries = append(entries, Entry{ID: id, Settings: settings})
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Settings.Created.Equal(entries[j].Settings.Created) {
			return entries[i].Settings.Created.Before(entries[j].Settings.Created)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}

func (s *Store) update(id string, fn func(*Settings)) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	settings, ok := s.sessions[id]
	if !ok {
		settings.Created = now
	}
	fn(&settings)
	settings.Updated = now
	s.sessions[id] = settings
	s.markDirty(id)
}

// markDirty records id for the next Save; the caller holds s.mu
func (s *Store) markDirty(id string) {
	s.dirty[id] = struct{}{}
	delete(s.deleted, id)
}

func (s *Store) withDefaults(settings Settings) Settings {
	if settings.Template == "" {
		settings.Template = s.defaults.Template
	}
	if settings.Channel == "" {
		settings.Channel = s.defaults.Channel
	}
	return settings
}

func lockPath(path string) string {
	return path + ".lock"
}
