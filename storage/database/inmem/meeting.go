package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/meeting"
)

type meetingRepository struct {
	db    *meetingTable
	users *userTable
}

var _ meeting.Repository = (*meetingRepository)(nil)

// NewMeetingRepository returns a meeting repository. Participant names are read from the user table.
func NewMeetingRepository(db *DB) meeting.Repository {
	return &meetingRepository{db: db.meeting, users: db.user}
}

func (repo *meetingRepository) withNames(m meeting.Meeting) meeting.Meeting {
	repo.users.mutex.RLock()
	defer repo.users.mutex.RUnlock()
	if s, ok := repo.users.table[m.StudentID]; ok {
		m.StudentName = s.Name
	}
	if f, ok := repo.users.table[m.FacultyID]; ok {
		m.FacultyName = f.Name
	}
	return m
}

func (repo *meetingRepository) CreateMeeting(_ context.Context, m meeting.Meeting) (meeting.Meeting, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	m.ID = newID()
	m.StudentName, m.FacultyName = "", ""
	repo.db.table[m.ID] = &m
	return repo.withNames(m), nil
}

func (repo *meetingRepository) GetMeetingByID(_ context.Context, id string) (meeting.Meeting, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.table[id]; ok {
		return repo.withNames(*m), nil
	}
	return meeting.Meeting{}, meeting.ErrNotFound
}

func (repo *meetingRepository) QueryMeetings(_ context.Context, filter *meeting.Filter, ordering []core.DBOrdering) ([]meeting.Meeting, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	meetings := make([]meeting.Meeting, 0)
	for _, m := range repo.db.table {
		if filter == nil || filter.Matches(*m) {
			meetings = append(meetings, repo.withNames(*m))
		}
	}

	sort.SliceStable(meetings, less(ordering, map[string]compare{
		"scheduledDate": func(i, j int) int { return cmpTime(meetings[i].ScheduledDate, meetings[j].ScheduledDate) },
		"meetingNumber": func(i, j int) int { return cmpInt(meetings[i].MeetingNumber, meetings[j].MeetingNumber) },
		"status":        func(i, j int) int { return cmpString(string(meetings[i].Status), string(meetings[j].Status)) },
		"createdAt":     func(i, j int) int { return cmpTime(meetings[i].CreatedAt, meetings[j].CreatedAt) },
		"updatedAt":     func(i, j int) int { return cmpTime(meetings[i].UpdatedAt, meetings[j].UpdatedAt) },
	}, core.DBOrdering{Field: "scheduledDate"}))
	return meetings, nil
}

func (repo *meetingRepository) UpdateMeeting(_ context.Context, m meeting.Meeting) (meeting.Meeting, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[m.ID]
	if !ok {
		return meeting.Meeting{}, meeting.ErrNotFound
	}
	// participants and slot are fixed at creation
	m.StudentID, m.FacultyID, m.ProjectID, m.MeetingNumber, m.CreatedAt = orig.StudentID, orig.FacultyID, orig.ProjectID, orig.MeetingNumber, orig.CreatedAt
	m.StudentName, m.FacultyName = "", ""
	repo.db.table[m.ID] = &m
	return repo.withNames(m), nil
}
