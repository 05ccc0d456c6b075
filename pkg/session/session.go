package session

import (
	"slices"
	"sync"
	"time"
)

// Session is a single user's in-memory workspace: named values and named tables
// that live until the session expires, is evicted, or is removed.
//
// All methods are safe for concurrent use. Once a session is destroyed its maps
// stay empty and writes return ErrSessionDestroyed.
type Session struct {
	id         string
	clock      Clock
	secureWipe bool

	mu           sync.Mutex
	createdAt    time.Time
	expiresAt    time.Time
	lastAccessed time.Time
	data         map[string]Value
	tables       map[string]*Table
	destroyed    bool
}

func newSession(id string, ttl time.Duration, clock Clock, secureWipe bool) *Session {
	now := clock.Now()
	return &Session{
		id:           id,
		clock:        clock,
		secureWipe:   secureWipe,
		createdAt:    now,
		expiresAt:    now.Add(ttl),
		lastAccessed: now,
		data:         make(map[string]Value),
		tables:       make(map[string]*Table),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) CreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createdAt
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// LastAccessed returns the time of the last read or write. It does not count as an access.
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// IsExpired reports whether the current time is past the session expiry.
func (s *Session) IsExpired() bool {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.After(s.expiresAt)
}

// Destroyed reports whether the session has been wiped.
func (s *Session) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// StoreData inserts or overwrites a generic value under key.
// A nil value is stored as an empty Scalar.
func (s *Session) StoreData(key string, value Value) error {
	if key == "" {
		return ErrEmptyKey
	}
	if value == nil {
		value = Scalar{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return ErrSessionDestroyed
	}
	s.data[key] = value
	s.touchLocked()
	return nil
}

// Set is a shorthand for StoreData(key, NewScalar(v)).
func (s *Session) Set(key string, v any) error {
	return s.StoreData(key, NewScalar(v))
}

// StoreTable inserts or overwrites a table under key.
func (s *Session) StoreTable(key string, table *Table) error {
	if key == "" {
		return ErrEmptyKey
	}
	if table == nil {
		return ErrNilTable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return ErrSessionDestroyed
	}
	s.tables[key] = table
	s.touchLocked()
	return nil
}

// GetData returns the value stored under key, or def when there is none.
func (s *Session) GetData(key string, def Value) Value {
	s.mu.Lock()
	defer s.mu.Unlock()

	val, ok := s.data[key]
	if !ok {
		return def
	}
	s.touchLocked()
	return val
}

// Get returns the payload of a Scalar stored under key.
func (s *Session) Get(key string) (any, bool) {
	val, ok := s.GetData(key, nil).(Scalar)
	if !ok {
		return nil, false
	}
	return val.V, true
}

// GetString retrieves a string scalar
func (s *Session) GetString(key string) (string, bool) {
	val, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetFloat retrieves a numeric scalar as float64
func (s *Session) GetFloat(key string) (float64, bool) {
	val, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// GetTable returns the table stored under key.
func (s *Session) GetTable(key string) (*Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[key]
	if !ok {
		return nil, false
	}
	s.touchLocked()
	return t, true
}

// RemoveData deletes key from whichever namespace holds it and reports whether
// anything was removed.
func (s *Session) RemoveData(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, inData := s.data[key]
	_, inTables := s.tables[key]
	delete(s.data, key)
	delete(s.tables, key)
	s.touchLocked()
	return inData || inTables
}

// Extend moves the expiry to now+d. It is a no-op returning false when the
// session has already expired, is destroyed, or d is not positive.
func (s *Session) Extend(d time.Duration) bool {
	if d <= 0 {
		return false
	}
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed || now.After(s.expiresAt) {
		return false
	}
	s.expiresAt = now.Add(d)
	s.lastAccessed = now
	return true
}

// MemoryEstimate returns entry counts and an approximate byte total.
func (s *Session) MemoryEstimate() MemoryEstimate {
	s.mu.Lock()
	defer s.mu.Unlock()

	est := MemoryEstimate{
		DataEntries:  len(s.data),
		TableEntries: len(s.tables),
		Bytes:        sessionOverhead + int64(len(s.id)),
	}
	for k, v := range s.data {
		est.Bytes += entryOverhead + int64(len(k)) + EstimateValue(v)
	}
	for k, t := range s.tables {
		est.Bytes += entryOverhead + int64(len(k)) + estimateTable(t)
	}
	return est
}

// Keys returns the sorted keys of the data namespace.
func (s *Session) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.data)
}

// TableKeys returns the sorted keys of the table namespace.
func (s *Session) TableKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.tables)
}

// Info is a read-only snapshot of a session.
type Info struct {
	ID           string         `json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	ExpiresAt    time.Time      `json:"expires_at"`
	LastAccessed time.Time      `json:"last_accessed"`
	DataKeys     []string       `json:"data_keys"`
	TableKeys    []string       `json:"table_keys"`
	Memory       MemoryEstimate `json:"memory"`
}

// Info returns a snapshot without counting as an access.
func (s *Session) Info() Info {
	mem := s.MemoryEstimate()

	s.mu.Lock()
	defer s.mu.Unlock()

	return Info{
		ID:           s.id,
		CreatedAt:    s.createdAt,
		ExpiresAt:    s.expiresAt,
		LastAccessed: s.lastAccessed,
		DataKeys:     sortedKeys(s.data),
		TableKeys:    sortedKeys(s.tables),
		Memory:       mem,
	}
}

// wipe clears both namespaces and marks the session destroyed. Safe to call twice.
func (s *Session) wipe() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.secureWipe {
		for _, v := range s.data {
			wipeValue(v)
		}
		for _, t := range s.tables {
			wipeTable(t)
		}
	}
	clear(s.data)
	clear(s.tables)
	s.destroyed = true
}

// Must be called with lock held.
func (s *Session) touchLocked() {
	s.lastAccessed = s.clock.Now()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
