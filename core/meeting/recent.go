package meeting

import (
	"fmt"
	"sync"

	"github.com/trezcool/dissertrack/core"
)

// MaxRecent bounds the number of meetings kept by a RecentStore.
const MaxRecent = 200

// Persister saves the recent meetings across restarts.
type Persister interface {
	Load() ([]Meeting, error)
	Save(meetings []Meeting) error
}

// RecentStore is the process-wide list of recently created meetings.
// It is a fallback source, never a source of truth: the last write for an id wins.
type RecentStore struct {
	mu      sync.RWMutex
	saveMu  sync.Mutex // orders saves; each one writes the state current when it runs
	byID    map[string]Meeting
	order   []string // insertion order, oldest first
	persist Persister
	logger  core.Logger
}

// NewRecentStore loads the persisted meetings, if any. persist and logger may be nil.
func NewRecentStore(persist Persister, logger core.Logger) *RecentStore {
	s := &RecentStore{
		byID:    make(map[string]Meeting),
		persist: persist,
		logger:  logger,
	}
	if persist != nil {
		meetings, err := persist.Load()
		if err != nil {
			s.warn(fmt.Sprintf("loading recent meetings: %v", err), err)
		}
		for _, m := range meetings {
			s.put(m)
		}
	}
	return s
}

func (s *RecentStore) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *RecentStore) put(m Meeting) {
	if m.ID == "" {
		return
	}
	if _, ok := s.byID[m.ID]; !ok {
		s.order = append(s.order, m.ID)
	}
	s.byID[m.ID] = m
	for len(s.order) > MaxRecent {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
}

// Add records a meeting and persists the store.
func (s *RecentStore) Add(m Meeting) {
	s.mu.Lock()
	s.put(m)
	s.mu.Unlock()
	s.save()
}

// Refresh replaces a meeting already held by the store; unknown meetings are ignored.
func (s *RecentStore) Refresh(m Meeting) {
	s.mu.Lock()
	if _, ok := s.byID[m.ID]; !ok {
		s.mu.Unlock()
		return
	}
	s.byID[m.ID] = m
	s.mu.Unlock()
	s.save()
}

func (s *RecentStore) save() {
	if s.persist == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := s.persist.Save(s.All()); err != nil {
		s.warn(fmt.Sprintf("saving recent meetings: %v", err), err)
	}
}

func (s *RecentStore) all() []Meeting {
	meetings := make([]Meeting, 0, len(s.order))
	for _, id := range s.order {
		meetings = append(meetings, s.byID[id])
	}
	return meetings
}

// All returns the stored meetings, oldest first.
func (s *RecentStore) All() []Meeting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.all()
}

// Matching returns the stored meetings satisfying the query.
func (s *RecentStore) Matching(q Query) []Meeting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var meetings []Meeting
	for _, id := range s.order {
		if m := s.byID[id]; q.Matches(m) {
			meetings = append(meetings, m)
		}
	}
	return meetings
}
