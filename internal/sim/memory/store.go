package memory

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrNotFound = errors.New("memory: no record")
	ErrCorrupt  = errors.New("memory: corrupt record")
)

// Store persists creep records by creep name.
type Store interface {
	Load(name string) (Record, error)
	Save(name string, r Record) error
	Delete(name string) error
	Names() ([]string, error)
}

// MemStore keeps encoded records in a map. It is what the loop uses when no
// database is configured, and it goes through the same codec as the SQLite
// store so corrupt bytes behave the same way.
type MemStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: map[string][]byte{}}
}

func (s *MemStore) Load(name string) (Record, error) {
	s.mu.Lock()
	b, ok := s.data[name]
	s.mu.Unlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	return Decode(b)
}

func (s *MemStore) Save(name string, r Record) error {
	b, err := Encode(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[name] = b
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Delete(name string) error {
	s.mu.Lock()
	delete(s.data, name)
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Names() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.data))
	for name := range s.data {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// PutRaw stores bytes as-is. Tests use it to plant damaged records.
func (s *MemStore) PutRaw(name string, b []byte) {
	s.mu.Lock()
	s.data[name] = append([]byte(nil), b...)
	s.mu.Unlock()
}

// Cleanup removes records of creeps not in alive and returns their names.
func Cleanup(s Store, alive []string) ([]string, error) {
	names, err := s.Names()
	if err != nil {
		return nil, err
	}
	keep := make(map[string]struct{}, len(alive))
	for _, n := range alive {
		keep[n] = struct{}{}
	}
	var removed []string
	for _, n := range names {
		if _, ok := keep[n]; ok {
			continue
		}
		if err := s.Delete(n); err != nil {
			return removed, err
		}
		removed = append(removed, n)
	}
	return removed, nil
}
