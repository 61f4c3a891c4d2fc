// internal/tableserver/store.go
package tableserver

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// TableStore holds the live tables in memory, keyed by game id.
type TableStore struct {
	mu       sync.Mutex
	tables   map[string]*Table
	capacity int
	logger   *logrus.Logger
}

// NewTableStore initializes an empty store whose tables seat capacity players.
func NewTableStore(capacity int, logger *logrus.Logger) *TableStore {
	return &TableStore{
		tables:   make(map[string]*Table),
		capacity: capacity,
		logger:   logger,
	}
}

// GetOrCreate returns the table for id, creating it on first use.
func (s *TableStore) GetOrCreate(id string) *Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		t = NewTable(id, s.capacity)
		s.tables[id] = t
		s.logger.Infof("TableStore: Added table %s.", id)
	}
	return t
}

// Get retrieves a table by id.
func (s *TableStore) Get(id string) (*Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	return t, ok
}

// Delete removes a table.
func (s *TableStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[id]; ok {
		delete(s.tables, id)
		s.logger.Infof("TableStore: Deleted table %s.", id)
	}
}

// List returns every table ordered by id.
func (s *TableStore) List() []*Table {
	s.mu.Lock()
	out := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
