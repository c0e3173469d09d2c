package library

import "sync"

// Snapshot is everything a session needs to rebuild its in-memory state.
// Requests are in queue order. UsersSaved reports whether the user registry
// has ever been written; an empty but saved registry is not seeded again.
type Snapshot struct {
	Books      []Book
	Requests   []CustomerRequest
	Users      []User
	UsersSaved bool
}

// Store persists each collection as a whole. Every Save replaces what was
// stored before.
type Store interface {
	Load() (Snapshot, error)
	SaveBooks(books []Book) error
	SaveRequests(requests []CustomerRequest) error
	SaveUsers(users []User) error
}

// MemoryStore is a Store kept in process memory, used by tests and dry runs.
// Setting FailWith makes every subsequent save return that error.
type MemoryStore struct {
	mu       sync.Mutex
	snap     Snapshot
	FailWith error
	Saves    int
}

// NewMemoryStore returns a store preloaded with snap.
func NewMemoryStore(snap Snapshot) *MemoryStore {
	return &MemoryStore{snap: cloneSnapshot(snap)}
}

func (m *MemoryStore) Load() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSnapshot(m.snap), nil
}

func (m *MemoryStore) SaveBooks(books []Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Saves++
	m.snap.Books = append([]Book(nil), books...)
	return nil
}

func (m *MemoryStore) SaveRequests(requests []CustomerRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Saves++
	m.snap.Requests = append([]CustomerRequest(nil), requests...)
	return nil
}

func (m *MemoryStore) SaveUsers(users []User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Saves++
	m.snap.Users = append([]User(nil), users...)
	m.snap.UsersSaved = true
	return nil
}

func cloneSnapshot(s Snapshot) Snapshot {
	return Snapshot{
		Books:      append([]Book(nil), s.Books...),
		Requests:   append([]CustomerRequest(nil), s.Requests...),
		Users:      append([]User(nil), s.Users...),
		UsersSaved: s.UsersSaved,
	}
}
