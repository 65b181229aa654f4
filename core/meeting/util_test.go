package meeting

import (
	"context"
	"fmt"
	"sync"

	"github.com/trezcool/dissertrack/core"
)

type testLogger struct {
	mu    sync.Mutex
	lines []string
}

var _ core.Logger = (*testLogger)(nil)

func (l *testLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+": "+msg)
}

func (l *testLogger) warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var warns []string
	for _, line := range l.lines {
		if len(line) > 6 && line[:6] == "WARN: " {
			warns = append(warns, line)
		}
	}
	return warns
}

func (l *testLogger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *testLogger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *testLogger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *testLogger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *testLogger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }

// fakeGateway serves meetings from memory. Errors set on it are returned by the matching call.
type fakeGateway struct {
	mu        sync.Mutex
	meetings  map[string]Meeting
	lists     int
	listErr   error
	createErr error
	updateErr error
	block     chan struct{} // when set, UpdateMeetingStatus waits on it
}

var _ Gateway = (*fakeGateway)(nil)

func newFakeGateway(meetings ...Meeting) *fakeGateway {
	gw := &fakeGateway{meetings: make(map[string]Meeting)}
	for _, m := range meetings {
		gw.meetings[m.ID] = m
	}
	return gw
}

func (gw *fakeGateway) listCalls() int {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return gw.lists
}

func (gw *fakeGateway) put(m Meeting) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.meetings[m.ID] = m
}

func (gw *fakeGateway) ListMeetings(_ context.Context, filter Filter) ([]Meeting, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.lists++
	if gw.listErr != nil {
		return nil, gw.listErr
	}
	var meetings []Meeting
	for _, m := range gw.meetings {
		if filter.Matches(m) {
			meetings = append(meetings, m)
		}
	}
	return meetings, nil
}

func (gw *fakeGateway) GetMeeting(_ context.Context, id string) (Meeting, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	m, ok := gw.meetings[id]
	if !ok {
		return Meeting{}, core.NewFailure(core.NotFoundFailure, 404, "meeting not found", nil)
	}
	return m, nil
}

func (gw *fakeGateway) CreateMeeting(_ context.Context, nm NewMeeting) (Meeting, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.createErr != nil {
		return Meeting{}, gw.createErr
	}
	m := Meeting{
		ID:            fmt.Sprintf("new%d", len(gw.meetings)+1),
		Title:         nm.Title,
		StudentID:     nm.StudentID,
		FacultyID:     "f1",
		ProjectID:     nm.ProjectID,
		MeetingNumber: nm.MeetingNumber,
		ScheduledDate: nm.ScheduledDate,
		Status:        StatusScheduled,
	}
	gw.meetings[m.ID] = m
	return m, nil
}

func (gw *fakeGateway) UpdateMeetingStatus(_ context.Context, id string, p UpdatePayload) (Meeting, error) {
	if gw.block != nil {
		<-gw.block
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.updateErr != nil {
		return Meeting{}, gw.updateErr
	}
	m, ok := gw.meetings[id]
	if !ok {
		return Meeting{}, core.NewFailure(core.NotFoundFailure, 404, "meeting not found", nil)
	}
	m = p.ApplyTo(m, m.UpdatedAt.Add(1))
	gw.meetings[id] = m
	return m, nil
}
