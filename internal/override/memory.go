package override

import (
	"log/slog"
	"sync"
)

// MemoryStore is a map-backed stand-in for the system store. It keeps one
// value per name, mirroring the registry layout, and can be told to fail.
type MemoryStore struct {
	mu     sync.Mutex
	name   string
	values map[string]uint32
	writes int

	// ReadErr and WriteErr, when set, are returned (wrapped) by the next
	// and every following read or write.
	ReadErr  error
	WriteErr error
}

// NewMemoryStore returns a store whose flag starts in the given state.
func NewMemoryStore(active bool) *MemoryStore {
	s := &MemoryStore{name: disableLockValueName, values: map[string]uint32{}}
	if active {
		s.values[s.name] = 1
	}
	return s
}

// Disable sets the flag to Active.
func (s *MemoryStore) Disable() error { return s.write(1) }

// Enable sets the flag to Inactive.
func (s *MemoryStore) Enable() error { return s.write(0) }

// IsActive reports the current flag.
func (s *MemoryStore) IsActive() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return false, persistenceError("read "+s.name, s.ReadErr)
	}
	return s.values[s.name] != 0, nil
}

// Writes returns how many writes actually changed the stored value.
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Snapshot returns a copy of the backing map.
func (s *MemoryStore) Snapshot() map[string]uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint32, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *MemoryStore) write(value uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return persistenceError("write "+s.name, s.WriteErr)
	}
	if s.values[s.name] == value {
		return nil
	}
	s.values[s.name] = value
	s.writes++
	slog.Debug("[override] memory store updated", "value", value)
	return nil
}
