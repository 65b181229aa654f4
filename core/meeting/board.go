package meeting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/user"
)

// Gateway is the remote meeting collaborator, as seen by clients.
// Errors carry a *core.Failure describing what went wrong.
type Gateway interface {
	ListMeetings(ctx context.Context, filter Filter) ([]Meeting, error)
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	CreateMeeting(ctx context.Context, nm NewMeeting) (Meeting, error)
	UpdateMeetingStatus(ctx context.Context, id string, p UpdatePayload) (Meeting, error)
}

// GatewaySource lists meetings through a Gateway, scoped by the query's role.
type GatewaySource struct {
	gw Gateway
}

var _ Source = (*GatewaySource)(nil)

func NewGatewaySource(gw Gateway) *GatewaySource { return &GatewaySource{gw: gw} }

func (s *GatewaySource) Name() string { return "api" }

func (s *GatewaySource) Meetings(ctx context.Context, q Query) ([]Meeting, error) {
	return s.gw.ListMeetings(ctx, q.Filter())
}

// Viewer is the signed-in user a Board is built for.
type Viewer struct {
	ID   string
	Role string
}

func (v Viewer) query(projectID string, force bool) Query {
	return Query{Role: v.Role, UserID: v.ID, ProjectID: projectID, Force: force}
}

// BoardConfig holds a Board's collaborators. Resolver and Recent are optional
// and default to a resolver over the gateway and an unpersisted store.
type BoardConfig struct {
	Viewer   Viewer
	Gateway  Gateway
	Broker   *Broker
	Resolver *Resolver
	Recent   *RecentStore
	CacheTTL time.Duration
	Buffer   int // broker subscription buffer
	Logger   core.Logger
}

// Board holds the meetings shown to one viewer and keeps them in sync with the server,
// other boards of the process and the viewer's own optimistic updates.
type Board struct {
	viewer   Viewer
	gw       Gateway
	broker   *Broker
	resolver *Resolver
	recent   *RecentStore
	tracked  *Tracked
	logger   core.Logger

	sub    *Subscription
	done   chan struct{}
	wg     sync.WaitGroup
	closer sync.Once

	mu     sync.RWMutex
	source string
}

func NewBoard(conf BoardConfig) (*Board, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(conf.Viewer.ID, "viewer id"),
		vala.StringNotEmpty(conf.Viewer.Role, "viewer role"),
		core.IsSet(conf.Gateway, "gateway"),
		vala.IsNotNil(conf.Broker, "broker"),
		core.IsSet(conf.Logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}

	recent := conf.Recent
	if recent == nil {
		recent = NewRecentStore(nil, conf.Logger)
	}
	resolver := conf.Resolver
	if resolver == nil {
		var err error
		if resolver, err = NewResolver(NewGatewaySource(conf.Gateway), recent, conf.CacheTTL, conf.Logger); err != nil {
			return nil, errors.Wrap(err, "creating resolver")
		}
	}

	b := &Board{
		viewer:   conf.Viewer,
		gw:       conf.Gateway,
		broker:   conf.Broker,
		resolver: resolver,
		recent:   recent,
		tracked:  NewTracked(),
		logger:   conf.Logger,
		sub:      conf.Broker.Subscribe(conf.Buffer),
		done:     make(chan struct{}),
	}
	b.wg.Add(1)
	go b.listen()
	return b, nil
}

func (b *Board) Viewer() Viewer { return b.viewer }

// Resolver returns the board's resolver, to be shared with other boards of the process.
func (b *Board) Resolver() *Resolver { return b.resolver }

func (b *Board) listen() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case e, ok := <-b.sub.C:
			if !ok {
				return
			}
			b.handle(e)
		}
	}
}

func (b *Board) handle(e Event) {
	if !b.relevant(e.Meeting) {
		return
	}
	b.tracked.Upsert(e.Meeting)
	if e.Kind == EventUpdated {
		b.recent.Refresh(e.Meeting)
	}
}

func (b *Board) relevant(m Meeting) bool {
	return b.viewer.query("", false).Matches(m)
}

// Refresh reloads the viewer's meetings through the resolver and returns the name of the
// source that answered, empty when none did. It never fails.
func (b *Board) Refresh(ctx context.Context, force bool) string {
	meetings, source := b.resolver.Resolve(ctx, b.viewer.query("", force))
	b.tracked.Replace(meetings)

	b.mu.Lock()
	b.source = source
	b.mu.Unlock()
	return source
}

// Source returns the name of the source of the last refresh.
func (b *Board) Source() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.source
}

// Meetings returns the shown meetings, most recently scheduled first.
func (b *Board) Meetings() []Meeting { return b.tracked.Meetings() }

// Entries returns the shown meetings with their reconciliation state.
func (b *Board) Entries() []Entry { return b.tracked.Entries() }

// Slots returns the four slots of a project from the shown meetings.
func (b *Board) Slots(projectID string) ([]Meeting, []SlotConflict) {
	var meetings []Meeting
	for _, m := range b.tracked.Meetings() {
		if projectID == "" || m.ProjectID == projectID {
			meetings = append(meetings, m)
		}
	}
	return GenerateSlots(meetings)
}

// Schedule creates a meeting, records it among the recent meetings and announces it.
func (b *Board) Schedule(ctx context.Context, nm NewMeeting) (Meeting, error) {
	if b.tracked.Closed() {
		return Meeting{}, errors.New("board is closed")
	}
	m, err := b.gw.CreateMeeting(ctx, nm)
	if err != nil {
		return Meeting{}, errors.Wrap(err, "creating meeting")
	}
	b.recent.Add(m)
	b.tracked.Upsert(m)
	b.broker.Publish(NewEvent(EventCreated, m))
	return m, nil
}

// UpdateStatus moves a shown meeting to target. The change is shown right away and rolled back
// if the server rejects it; the failure is returned with its kind.
func (b *Board) UpdateStatus(ctx context.Context, id string, target Status, content ContentUpdate, date *time.Time) (Meeting, error) {
	entry, ok := b.tracked.Get(id)
	if !ok {
		return Meeting{}, ErrNotFound
	}
	p, err := RequestTransition(entry.Meeting, target, content, date)
	if err != nil {
		return Meeting{}, err
	}

	token, ok := b.tracked.Apply(id, p, time.Now().UTC())
	if !ok {
		return Meeting{}, ErrNotFound
	}
	m, err := b.gw.UpdateMeetingStatus(ctx, id, p)
	if err != nil {
		b.tracked.Rollback(id, token)
		b.logger.Warn(fmt.Sprintf("updating meeting %s (%s): %v", id, core.FailureKindOf(err), err))
		return Meeting{}, errors.Wrap(err, "updating meeting status")
	}

	b.tracked.Confirm(id, token, m)
	b.recent.Refresh(m)
	b.broker.Publish(NewEvent(EventUpdated, m))
	return m, nil
}

// Close detaches the board. Later answers and events are ignored.
func (b *Board) Close() {
	b.closer.Do(func() {
		b.tracked.Close()
		close(b.done)
		b.sub.Unsubscribe()
		b.wg.Wait()
	})
}

// isFaculty reports whether the viewer may schedule and update meetings.
func (v Viewer) isFaculty() bool { return v.Role == user.RoleFaculty }

// CanManage reports whether the viewer may change m.
func (b *Board) CanManage(m Meeting) bool {
	return b.viewer.isFaculty() && m.FacultyID == b.viewer.ID && !m.IsPlaceholder
}
