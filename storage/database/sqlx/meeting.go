package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/meeting"
)

// participant names come from the user table
const meetingSelect = `SELECT m.id, m.title, m.student_id, m.faculty_id, m.project_id, s.name AS student_name,
	f.name AS faculty_name, m.meeting_number, m.scheduled_date, m.duration, m.meeting_type, m.status,
	m.meeting_summary, m.student_points, m.guide_remarks, m.created_at, m.updated_at
	FROM meeting m
	LEFT JOIN "user" s ON s.id = m.student_id
	LEFT JOIN "user" f ON f.id = m.faculty_id`

var meetingOrderColumns = map[string]string{
	"scheduledDate": "m.scheduled_date",
	"meetingNumber": "m.meeting_number",
	"status":        "m.status",
	"createdAt":     "m.created_at",
	"updatedAt":     "m.updated_at",
}

type meetingRow struct {
	ID             string      `db:"id"`
	Title          string      `db:"title"`
	StudentID      string      `db:"student_id"`
	FacultyID      string      `db:"faculty_id"`
	ProjectID      string      `db:"project_id"`
	StudentName    null.String `db:"student_name"`
	FacultyName    null.String `db:"faculty_name"`
	MeetingNumber  int         `db:"meeting_number"`
	ScheduledDate  time.Time   `db:"scheduled_date"`
	Duration       int         `db:"duration"`
	MeetingType    string      `db:"meeting_type"`
	Status         string      `db:"status"`
	MeetingSummary string      `db:"meeting_summary"`
	StudentPoints  string      `db:"student_points"`
	GuideRemarks   string      `db:"guide_remarks"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func toMeetingRow(m meeting.Meeting) meetingRow {
	return meetingRow{
		ID:             m.ID,
		Title:          m.Title,
		StudentID:      m.StudentID,
		FacultyID:      m.FacultyID,
		ProjectID:      m.ProjectID,
		MeetingNumber:  m.MeetingNumber,
		ScheduledDate:  m.ScheduledDate.UTC(),
		Duration:       m.Duration,
		MeetingType:    string(m.MeetingType),
		Status:         string(m.Status),
		MeetingSummary: m.MeetingSummary,
		StudentPoints:  m.StudentPoints,
		GuideRemarks:   m.GuideRemarks,
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

func (r meetingRow) toMeeting() meeting.Meeting {
	return meeting.Meeting{
		ID:             r.ID,
		Title:          r.Title,
		StudentID:      r.StudentID,
		FacultyID:      r.FacultyID,
		ProjectID:      r.ProjectID,
		StudentName:    r.StudentName.String,
		FacultyName:    r.FacultyName.String,
		MeetingNumber:  r.MeetingNumber,
		ScheduledDate:  r.ScheduledDate.UTC(),
		Duration:       r.Duration,
		MeetingType:    meeting.Type(r.MeetingType),
		Status:         meeting.Status(r.Status),
		MeetingSummary: r.MeetingSummary,
		StudentPoints:  r.StudentPoints,
		GuideRemarks:   r.GuideRemarks,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type meetingRepository struct {
	db sqlx.ExtContext
}

var _ meeting.Repository = (*meetingRepository)(nil)

func NewMeetingRepository(db sqlx.ExtContext) *meetingRepository {
	return &meetingRepository{db: db}
}

func (repo meetingRepository) CreateMeeting(ctx context.Context, m meeting.Meeting) (meeting.Meeting, error) {
	m.ID = uuid.New().String()
	q := `INSERT INTO meeting (id, title, student_id, faculty_id, project_id, meeting_number, scheduled_date, duration,
		meeting_type, status, meeting_summary, student_points, guide_remarks, created_at, updated_at)
		VALUES (:id, :title, :student_id, :faculty_id, :project_id, :meeting_number, :scheduled_date, :duration,
		:meeting_type, :status, :meeting_summary, :student_points, :guide_remarks, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, toMeetingRow(m)); err != nil {
		return meeting.Meeting{}, errors.Wrap(err, "inserting meeting")
	}
	return m, nil
}

func (repo meetingRepository) GetMeetingByID(ctx context.Context, id string) (meeting.Meeting, error) {
	if _, err := uuid.Parse(id); err != nil {
		return meeting.Meeting{}, meeting.ErrNotFound
	}
	var row meetingRow
	if err := sqlx.GetContext(ctx, repo.db, &row, repo.db.Rebind(meetingSelect+" WHERE m.id = ?"), id); err != nil {
		return meeting.Meeting{}, trapNoRows(err, meeting.ErrNotFound, "getting meeting")
	}
	return row.toMeeting(), nil
}

func (repo meetingRepository) QueryMeetings(ctx context.Context, filter *meeting.Filter, ordering []core.DBOrdering) ([]meeting.Meeting, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		if filter.StudentID != "" {
			where = append(where, "m.student_id = ?")
			args = append(args, filter.StudentID)
		}
		if filter.FacultyID != "" {
			where = append(where, "m.faculty_id = ?")
			args = append(args, filter.FacultyID)
		}
		if filter.ProjectID != "" {
			where = append(where, "m.project_id = ?")
			args = append(args, filter.ProjectID)
		}
		if len(filter.Statuses) > 0 {
			where = append(where, "m.status = ANY(?)")
			args = append(args, pq.Array(filter.Statuses))
		}
	}

	q := meetingSelect + whereClause(where) + core.OrderByClause(ordering, meetingOrderColumns, "m.scheduled_date DESC")
	var rows []meetingRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying meetings")
	}

	meetings := make([]meeting.Meeting, 0, len(rows))
	for _, r := range rows {
		meetings = append(meetings, r.toMeeting())
	}
	return meetings, nil
}

func (repo meetingRepository) UpdateMeeting(ctx context.Context, m meeting.Meeting) (meeting.Meeting, error) {
	q := `UPDATE meeting SET title = :title, scheduled_date = :scheduled_date, duration = :duration,
		meeting_type = :meeting_type, status = :status, meeting_summary = :meeting_summary,
		student_points = :student_points, guide_remarks = :guide_remarks, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, toMeetingRow(m))
	if err != nil {
		return meeting.Meeting{}, errors.Wrap(err, "updating meeting")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return meeting.Meeting{}, meeting.ErrNotFound
	}
	return m, nil
}
