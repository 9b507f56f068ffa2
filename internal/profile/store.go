package profile

import (
	"sync"
	"sync/atomic"
)

// Store keeps one profile per ID.
//
// Implementations must make Update atomic for a single ID. Returned
// profiles are copies; mutating them does not touch the store.
type Store interface {
	// Upsert inserts or replaces the profile stored at p.ID.
	Upsert(p Profile) error
	// Get returns the stored profile or, if there is none, New(id).
	Get(id int64) (Profile, error)
	// FindByName matches the username case-insensitively and ignores a
	// leading "@". Which profile wins among duplicates is undefined.
	FindByName(name string) (Profile, error)
	// List returns a snapshot of every stored profile in no particular order.
	List() ([]Profile, error)
	// Update runs fn on the current profile for id under that ID's lock
	// and stores the result.
	Update(id int64, fn func(*Profile)) (Profile, error)
	// AddUnlinked stores p under a negative ID below every stored one and
	// returns it. It fails with ErrExists if p.Username is already taken;
	// the check and the insert are one step with respect to other adds.
	AddUnlinked(p Profile) (Profile, error)
}

type entry struct {
	mu     sync.Mutex
	p      Profile
	stored bool
}

// MemStore is the in-memory Store. Each ID has its own lock, so writers on
// different IDs never wait for each other. A username index makes
// FindByName O(1); it is checked against the entry on every hit and
// rebuilt lazily from a scan when it has gone stale.
type MemStore struct {
	entries sync.Map // int64 -> *entry

	namesMu sync.RWMutex
	names   map[string]int64

	addMu  sync.Mutex
	manual atomic.Int64 // lowest negative ID handed out or stored
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{names: make(map[string]int64)}
}

func (s *MemStore) slot(id int64) *entry {
	if e, ok := s.entries.Load(id); ok {
		return e.(*entry)
	}
	e, _ := s.entries.LoadOrStore(id, &entry{})
	return e.(*entry)
}

func (s *MemStore) Upsert(p Profile) error {
	e := s.slot(p.ID)
	e.mu.Lock()
	defer e.mu.Unlock()

	s.store(e, p.Clone())
	return nil
}

func (s *MemStore) Get(id int64) (Profile, error) {
	v, ok := s.entries.Load(id)
	if !ok {
		return New(id), nil
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.stored {
		return New(id), nil
	}
	return e.p.Clone(), nil
}

func (s *MemStore) FindByName(name string) (Profile, error) {
	key := NormalizeName(name)
	if key == "" {
		return Profile{}, ErrNotFound
	}

	s.namesMu.RLock()
	id, ok := s.names[key]
	s.namesMu.RUnlock()
	if ok {
		if v, found := s.entries.Load(id); found {
			e := v.(*entry)
			e.mu.Lock()
			hit := e.stored && NormalizeName(e.p.Username) == key
			p := e.p.Clone()
			e.mu.Unlock()
			if hit {
				return p, nil
			}
		}
	}

	// Index miss or stale entry: fall back to a scan and repair the index.
	var (
		found Profile
		hit   bool
	)
	s.entries.Range(func(_, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.stored && NormalizeName(e.p.Username) == key {
			found, hit = e.p.Clone(), true
			return false
		}
		return true
	})
	if !hit {
		return Profile{}, ErrNotFound
	}
	s.namesMu.Lock()
	s.names[key] = found.ID
	s.namesMu.Unlock()
	return found, nil
}

func (s *MemStore) List() ([]Profile, error) {
	var out []Profile
	s.entries.Range(func(_, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		if e.stored {
			out = append(out, e.p.Clone())
		}
		e.mu.Unlock()
		return true
	})
	return out, nil
}

func (s *MemStore) Update(id int64, fn func(*Profile)) (Profile, error) {
	e := s.slot(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	p := New(id)
	if e.stored {
		p = e.p.Clone()
	}
	fn(&p)
	p.ID = id
	s.store(e, p)
	return p.Clone(), nil
}

func (s *MemStore) AddUnlinked(p Profile) (Profile, error) {
	s.addMu.Lock()
	defer s.addMu.Unlock()

	if NormalizeName(p.Username) != "" {
		if _, err := s.FindByName(p.Username); err == nil {
			return Profile{}, ErrExists
		}
	}

	p = p.Clone()
	for {
		p.ID = s.manual.Add(-1)
		e := s.slot(p.ID)
		e.mu.Lock()
		if e.stored {
			e.mu.Unlock()
			continue
		}
		s.store(e, p)
		e.mu.Unlock()
		return p.Clone(), nil
	}
}

// store must be called with e.mu held.
func (s *MemStore) store(e *entry, p Profile) {
	oldKey := ""
	if e.stored {
		oldKey = NormalizeName(e.p.Username)
	}
	e.p = p
	e.stored = true
	s.lowerManual(p.ID)

	newKey := NormalizeName(p.Username)
	if oldKey == newKey {
		return
	}
	s.namesMu.Lock()
	defer s.namesMu.Unlock()
	if oldKey != "" && s.names[oldKey] == p.ID {
		delete(s.names, oldKey)
	}
	if newKey != "" {
		s.names[newKey] = p.ID
	}
}

// lowerManual keeps the next unlinked ID below id.
func (s *MemStore) lowerManual(id int64) {
	for {
		cur := s.manual.Load()
		if id >= cur || s.manual.CompareAndSwap(cur, id) {
			return
		}
	}
}
