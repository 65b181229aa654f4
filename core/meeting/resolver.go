package meeting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kat-co/vala"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/user"
)

// DefaultCacheTTL is how long a fetched meeting list is served from cache.
const DefaultCacheTTL = 30 * time.Minute

// Query asks for the meetings relevant to a user.
type Query struct {
	Role      string // user.RoleStudent, user.RoleFaculty or user.RoleHOD
	UserID    string
	ProjectID string
	Force     bool // bypass caches
}

func (q Query) key() string {
	return strings.Join([]string{q.Role, q.UserID, q.ProjectID}, "|")
}

// Filter scopes a list request to the caller's role.
func (q Query) Filter() Filter {
	f := Filter{ProjectID: q.ProjectID}
	switch q.Role {
	case user.RoleStudent:
		f.StudentID = q.UserID
	case user.RoleFaculty:
		f.FacultyID = q.UserID
	}
	return f
}

// Matches reports whether m belongs in the query's result. HODs see every meeting.
func (q Query) Matches(m Meeting) bool {
	if q.ProjectID != "" && m.ProjectID != q.ProjectID {
		return false
	}
	switch q.Role {
	case user.RoleStudent:
		return m.StudentID == q.UserID
	case user.RoleFaculty:
		return m.FacultyID == q.UserID
	case user.RoleHOD:
		return true
	default:
		return m.Involves(q.UserID)
	}
}

// Source is one origin of meeting lists.
type Source interface {
	Name() string
	Meetings(ctx context.Context, q Query) ([]Meeting, error)
}

// CachedSource serves a source's lists from a TTL cache. Concurrent misses for the same
// query share one fetch. Only non-empty lists are cached.
type CachedSource struct {
	src   Source
	cache *gocache.Cache
	group singleflight.Group
}

var _ Source = (*CachedSource)(nil)

func NewCachedSource(src Source, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{src: src, cache: gocache.New(ttl, 2*ttl)}
}

func (c *CachedSource) Name() string { return c.src.Name() }

func (c *CachedSource) Meetings(ctx context.Context, q Query) ([]Meeting, error) {
	key := q.key()
	if !q.Force {
		if v, ok := c.cache.Get(key); ok {
			return copyMeetings(v.([]Meeting)), nil
		}
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		meetings, err := c.src.Meetings(ctx, q)
		if err != nil {
			return nil, err
		}
		if len(meetings) > 0 {
			c.cache.SetDefault(key, copyMeetings(meetings))
		}
		return meetings, nil
	})
	if err != nil {
		return nil, err
	}
	return copyMeetings(v.([]Meeting)), nil
}

// Snapshot returns every unexpired cached list, keyed by query.
func (c *CachedSource) Snapshot() map[string][]Meeting {
	items := c.cache.Items()
	snapshot := make(map[string][]Meeting, len(items))
	for k, item := range items {
		if meetings, ok := item.Object.([]Meeting); ok {
			snapshot[k] = copyMeetings(meetings)
		}
	}
	return snapshot
}

// RecentSource serves the recent meetings store.
type RecentSource struct {
	store *RecentStore
}

func NewRecentSource(store *RecentStore) *RecentSource { return &RecentSource{store: store} }

func (s *RecentSource) Name() string { return "recent" }

func (s *RecentSource) Meetings(_ context.Context, q Query) ([]Meeting, error) {
	return s.store.Matching(q), nil
}

// PeerSource serves the lists cached for other queries, e.g. the guide's list when a
// student asks, filtered down to the asking user.
type PeerSource struct {
	cache *CachedSource
}

func NewPeerSource(cache *CachedSource) *PeerSource { return &PeerSource{cache: cache} }

func (s *PeerSource) Name() string { return "peer" }

func (s *PeerSource) Meetings(_ context.Context, q Query) ([]Meeting, error) {
	own := q.key()
	seen := make(map[string]struct{})
	var meetings []Meeting
	for key, list := range s.cache.Snapshot() {
		if key == own {
			continue
		}
		for _, m := range list {
			if _, ok := seen[m.ID]; ok || !q.Matches(m) {
				continue
			}
			seen[m.ID] = struct{}{}
			meetings = append(meetings, m)
		}
	}
	return meetings, nil
}

// Resolver resolves the meetings relevant to a user, falling back through its sources in
// order when one errors or comes back empty. It never fails: exhaustion yields an empty list.
type Resolver struct {
	recent  *RecentStore
	sources []Source
	logger  core.Logger
}

// NewResolver chains primary (cached with ttl), the recent store, then the primary's cache as a peer source.
func NewResolver(primary Source, recent *RecentStore, ttl time.Duration, logger core.Logger) (*Resolver, error) {
	if err := vala.BeginValidation().Validate(
		core.IsSet(primary, "primary"),
		vala.IsNotNil(recent, "recent"),
		core.IsSet(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}

	cached := NewCachedSource(primary, ttl)
	return &Resolver{
		recent:  recent,
		sources: []Source{cached, NewRecentSource(recent), NewPeerSource(cached)},
		logger:  logger,
	}, nil
}

// Resolve returns the meetings matching q and the name of the source that supplied them.
// On a primary hit, recent meetings the primary does not return yet are merged in; for an id
// held by both, the later update wins.
func (r *Resolver) Resolve(ctx context.Context, q Query) ([]Meeting, string) {
	for i, src := range r.sources {
		if ctx.Err() != nil {
			break
		}
		meetings, err := src.Meetings(ctx, q)
		if err != nil {
			r.logger.Warn(fmt.Sprintf("meetings source %q failed (%s): %v", src.Name(), core.FailureKindOf(err), err), err)
			continue
		}
		meetings = filterMeetings(meetings, q)
		if len(meetings) == 0 {
			continue
		}
		if i == 0 {
			meetings = Merge(meetings, r.recent.Matching(q))
		}
		return meetings, src.Name()
	}
	return []Meeting{}, ""
}

// Merge merges extra into meetings by id: the record with the later UpdatedAt wins,
// unknown ids are appended.
func Merge(meetings, extra []Meeting) []Meeting {
	merged := copyMeetings(meetings)
	idx := make(map[string]int, len(merged))
	for i, m := range merged {
		idx[m.ID] = i
	}
	for _, m := range extra {
		if i, ok := idx[m.ID]; ok {
			if m.UpdatedAt.After(merged[i].UpdatedAt) {
				merged[i] = m
			}
			continue
		}
		idx[m.ID] = len(merged)
		merged = append(merged, m)
	}
	return merged
}

func filterMeetings(meetings []Meeting, q Query) []Meeting {
	kept := make([]Meeting, 0, len(meetings))
	for _, m := range meetings {
		if q.Matches(m) {
			kept = append(kept, m)
		}
	}
	return kept
}

func copyMeetings(meetings []Meeting) []Meeting {
	if meetings == nil {
		return nil
	}
	return append(make([]Meeting, 0, len(meetings)), meetings...)
}
