package meeting

import (
	"sort"
	"sync"
	"time"
)

type EntryState int

const (
	Confirmed EntryState = iota // matches the last value the server returned
	Pending                     // a local update awaits the server's answer
)

func (s EntryState) String() string {
	if s == Pending {
		return "pending"
	}
	return "confirmed"
}

// Entry is a meeting as currently shown, with its reconciliation state.
type Entry struct {
	Meeting Meeting
	State   EntryState
}

type trackedEntry struct {
	current Meeting
	base    Meeting // last confirmed value
	state   EntryState
	seq     uint64 // token of the latest local update
	baseSeq uint64 // token of the update that produced base, 0 for refreshed values
}

// Tracked is a meeting list with optimistic updates.
// Apply shows an update right away as Pending. Confirm installs the server's value, Rollback restores the
// last confirmed one. Answers that arrive after a newer local update never overwrite it.
// Once closed, every write is ignored.
type Tracked struct {
	mu      sync.RWMutex
	entries map[string]*trackedEntry
	seq     uint64
	closed  bool
}

func NewTracked() *Tracked {
	return &Tracked{entries: make(map[string]*trackedEntry)}
}

// Replace reconciles the list with a full refresh.
// Confirmed entries take the fetched value, pending ones keep their local value until answered.
// Confirmed entries missing from meetings are dropped.
func (t *Tracked) Replace(meetings []Meeting) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	fetched := make(map[string]struct{}, len(meetings))
	for _, m := range meetings {
		if m.ID == "" {
			continue
		}
		fetched[m.ID] = struct{}{}
		e, ok := t.entries[m.ID]
		if !ok {
			t.entries[m.ID] = &trackedEntry{current: m, base: m}
			continue
		}
		e.base = m
		if e.state == Confirmed {
			e.current = m
		}
	}
	for id, e := range t.entries {
		if _, ok := fetched[id]; !ok && e.state == Confirmed {
			delete(t.entries, id)
		}
	}
}

// Upsert records a meeting known to exist on the server, e.g. a created one or one received
// from an event. Older values than the one held are ignored.
func (t *Tracked) Upsert(m Meeting) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || m.ID == "" {
		return
	}

	e, ok := t.entries[m.ID]
	if !ok {
		t.entries[m.ID] = &trackedEntry{current: m, base: m}
		return
	}
	if m.UpdatedAt.Before(e.base.UpdatedAt) {
		return
	}
	e.base = m
	if e.state == Confirmed {
		e.current = m
	}
}

// Apply shows the payload on meeting id and marks it pending.
// It returns the token to Confirm or Rollback with; ok is false if the meeting is unknown.
func (t *Tracked) Apply(id string, p UpdatePayload, at time.Time) (token uint64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, false
	}
	e, ok := t.entries[id]
	if !ok {
		return 0, false
	}
	t.seq++
	e.seq = t.seq
	e.current = p.ApplyTo(e.current, at)
	e.state = Pending
	return e.seq, true
}

// Confirm installs the server's answer to the update identified by token.
func (t *Tracked) Confirm(id string, token uint64, server Meeting) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	e, ok := t.entries[id]
	if !ok || token <= e.baseSeq {
		return
	}
	e.base = server
	e.baseSeq = token
	if e.state == Confirmed || token == e.seq {
		e.current = server
		e.state = Confirmed
	}
}

// Rollback discards the update identified by token, unless a newer one superseded it.
func (t *Tracked) Rollback(id string, token uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	e, ok := t.entries[id]
	if !ok || token != e.seq || e.state != Pending {
		return
	}
	e.current = e.base
	e.state = Confirmed
}

func (t *Tracked) Get(id string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	if !ok {
		return Entry{}, false
	}
	return Entry{Meeting: e.current, State: e.state}, true
}

// Entries returns every entry, most recently scheduled first.
func (t *Tracked) Entries() []Entry {
	t.mu.RLock()
	entries := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, Entry{Meeting: e.current, State: e.state})
	}
	t.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Meeting, entries[j].Meeting
		if !a.ScheduledDate.Equal(b.ScheduledDate) {
			return a.ScheduledDate.After(b.ScheduledDate)
		}
		return a.ID < b.ID
	})
	return entries
}

func (t *Tracked) Meetings() []Meeting {
	entries := t.Entries()
	meetings := make([]Meeting, 0, len(entries))
	for _, e := range entries {
		meetings = append(meetings, e.Meeting)
	}
	return meetings
}

// Close makes the list read-only.
func (t *Tracked) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

func (t *Tracked) Closed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}
