package rbac

import "sync"

// Store holds the permission matrix of one authenticated session.
// A Store that was never loaded, or was cleared, authorizes nothing.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	loaded  bool
}

// NewStore returns an empty, unloaded Store.
func NewStore() *Store {
	return &Store{}
}

// NewLoadedStore returns a Store already loaded with entries.
func NewLoadedStore(entries []Entry) *Store {
	s := NewStore()
	s.Load(entries)
	return s
}

// Load replaces the stored set. Duplicate (form, action) pairs keep their first position.
func (s *Store) Load(entries []Entry) {
	deduped := make([]Entry, 0, len(entries))
	seen := make(map[Entry]struct{}, len(entries))
	for _, e := range entries {
		if e.FormID == "" || e.Action == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		deduped = append(deduped, e)
	}
	s.mu.Lock()
	s.entries = deduped
	s.loaded = true
	s.mu.Unlock()
}

// Clear drops all permissions; the store becomes unloaded.
func (s *Store) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.entries = nil
	s.loaded = false
	s.mu.Unlock()
}

// All returns a copy of the stored entries, or nil when unloaded.
func (s *Store) All() []Entry {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil
	}
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Loaded reports whether Load has been called since the last Clear.
func (s *Store) Loaded() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
