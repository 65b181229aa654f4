package tests

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dissertrack/core/meeting"
	"github.com/trezcool/dissertrack/core/project"
	"github.com/trezcool/dissertrack/tests"
)

func (f *fixture) newMeeting(number int) meeting.NewMeeting {
	return meeting.NewMeeting{
		Title:         "Progress review",
		StudentID:     f.student.ID,
		ProjectID:     f.approved.ID,
		MeetingNumber: number,
		ScheduledDate: time.Date(2024, 3, number, 10, 0, 0, 0, time.UTC),
	}
}

func Test_meetingApi_schedule(t *testing.T) {
	f := setup(t)
	pending := testutil.CreateProject(t, f.prjRepo, "Draft", f.student.ID, f.guide.ID, project.StatusPending)
	testutil.CreateMeeting(t, f.mtgRepo, f.approved, 2, time.Now())

	withProject := func(nm meeting.NewMeeting, projectID string) meeting.NewMeeting {
		nm.ProjectID = projectID
		return nm
	}
	guideToken := f.token(t, f.guide)

	runHTTPTests(t, f, []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/v1/meetings", body: marchallObj(t, f.newMeeting(1)),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "faculty only", method: http.MethodPost, path: "/v1/meetings", token: f.token(t, f.student),
			body: marchallObj(t, f.newMeeting(1)), wantCode: http.StatusForbidden,
		},
		{
			name: "invalid body", method: http.MethodPost, path: "/v1/meetings", token: guideToken,
			body: []byte(`{"meetingNumber": 9}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "not the guide", method: http.MethodPost, path: "/v1/meetings", token: f.token(t, f.other),
			body: marchallObj(t, f.newMeeting(1)), wantCode: http.StatusForbidden,
		},
		{
			name: "project not approved", method: http.MethodPost, path: "/v1/meetings", token: guideToken,
			body: marchallObj(t, withProject(f.newMeeting(1), pending.ID)), wantCode: http.StatusBadRequest,
		},
		{
			name: "slot taken", method: http.MethodPost, path: "/v1/meetings", token: guideToken,
			body:     marchallObj(t, f.newMeeting(2)),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"meetingNumber": meeting.ErrSlotTaken.Error()}),
		},
	})

	rec := f.serve(http.MethodPost, "/v1/meetings", guideToken, marchallObj(t, f.newMeeting(1)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var m meeting.Meeting
	unmarshal(t, rec, &m)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, meeting.StatusScheduled, m.Status)
	assert.Equal(t, meeting.TypeProgressReview, m.MeetingType)
	assert.Equal(t, meeting.DefaultDuration, m.Duration)
	assert.Equal(t, f.guide.ID, m.FacultyID)
	assert.Equal(t, f.student.Name, m.StudentName)
}

func Test_meetingApi_queryAndRetrieve(t *testing.T) {
	f := setup(t)
	m1 := testutil.CreateMeeting(t, f.mtgRepo, f.approved, 1, time.Now())

	loneProject := testutil.CreateProject(t, f.prjRepo, "Solo", f.loner.ID, f.other.ID, project.StatusApproved)
	m2 := testutil.CreateMeeting(t, f.mtgRepo, loneProject, 1, time.Now())

	ids := func(t *testing.T, rec *httptest.ResponseRecorder) []string {
		var meetings []meeting.Meeting
		unmarshal(t, rec, &meetings)
		res := make([]string, 0, len(meetings))
		for _, m := range meetings {
			res = append(res, m.ID)
		}
		return res
	}

	t.Run("list is scoped", func(t *testing.T) {
		tests := []struct {
			name  string
			token string
			path  string
			want  []string
		}{
			{name: "student", token: f.token(t, f.student), path: "/v1/meetings", want: []string{m1.ID}},
			{name: "student cannot widen", token: f.token(t, f.student), path: "/v1/meetings?studentId=" + f.loner.ID, want: []string{m1.ID}},
			{name: "guide", token: f.token(t, f.other), path: "/v1/meetings", want: []string{m2.ID}},
			{name: "HOD", token: f.token(t, f.hod), path: "/v1/meetings", want: []string{m1.ID, m2.ID}},
			{name: "HOD by project", token: f.token(t, f.hod), path: "/v1/meetings?projectId=" + loneProject.ID, want: []string{m2.ID}},
			{name: "status filter", token: f.token(t, f.hod), path: "/v1/meetings?status=completed", want: []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := f.serve(http.MethodGet, tt.path, tt.token)
				require.Equal(t, http.StatusOK, rec.Code)
				assert.ElementsMatch(t, tt.want, ids(t, rec))
			})
		}
	})

	runHTTPTests(t, f, []httpTest{
		{name: "own meeting", path: "/v1/meetings/" + m1.ID, token: f.token(t, f.student), wantCode: http.StatusOK},
		{name: "guided meeting", path: "/v1/meetings/" + m1.ID, token: f.token(t, f.guide), wantCode: http.StatusOK},
		{name: "someone else's", path: "/v1/meetings/" + m2.ID, token: f.token(t, f.student), wantCode: http.StatusNotFound},
		{name: "HOD", path: "/v1/meetings/" + m2.ID, token: f.token(t, f.hod), wantCode: http.StatusOK},
		{name: "unknown", path: "/v1/meetings/missing", token: f.token(t, f.hod), wantCode: http.StatusNotFound},
	})
}

func Test_meetingApi_updateStatus(t *testing.T) {
	f := setup(t)
	m := testutil.CreateMeeting(t, f.mtgRepo, f.approved, 1, time.Now())
	path := "/v1/meetings/" + m.ID + "/status"
	str := func(s string) *string { return &s }

	runHTTPTests(t, f, []httpTest{
		{
			name: "faculty only", method: http.MethodPut, path: path, token: f.token(t, f.student),
			body: marchallObj(t, meeting.StatusUpdate{Status: meeting.StatusCompleted}), wantCode: http.StatusForbidden,
		},
		{
			name: "status required", method: http.MethodPut, path: path, token: f.token(t, f.guide),
			body: []byte(`{}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "invalid transition", method: http.MethodPut, path: path, token: f.token(t, f.guide),
			body: marchallObj(t, meeting.StatusUpdate{Status: meeting.StatusScheduled}), wantCode: http.StatusBadRequest,
		},
		{
			name: "reschedule needs a date", method: http.MethodPut, path: path, token: f.token(t, f.guide),
			body: marchallObj(t, meeting.StatusUpdate{Status: meeting.StatusRescheduled}), wantCode: http.StatusBadRequest,
		},
	})

	sub := f.broker.Subscribe(1)
	defer sub.Unsubscribe()

	rec := f.serve(http.MethodPut, path, f.token(t, f.guide), marchallObj(t, meeting.StatusUpdate{
		Status:         "Completed",
		MeetingSummary: str("Went well"),
		GuideRemarks:   str(""),
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got meeting.Meeting
	unmarshal(t, rec, &got)
	assert.Equal(t, meeting.StatusCompleted, got.Status)
	assert.Equal(t, "Went well", got.MeetingSummary)
	assert.Equal(t, meeting.NoPoints, got.StudentPoints)
	assert.Empty(t, got.GuideRemarks)

	select {
	case e := <-sub.C:
		assert.Equal(t, meeting.EventUpdated, e.Kind)
		assert.Equal(t, m.ID, e.Meeting.ID)
	default:
		t.Error("no event published")
	}
}

func Test_meetingApi_slots(t *testing.T) {
	f := setup(t)
	testutil.CreateMeeting(t, f.mtgRepo, f.approved, 3, time.Now())
	path := "/v1/students/" + f.student.ID + "/meeting-slots?projectId=" + f.approved.ID

	runHTTPTests(t, f, []httpTest{
		{name: "auth required", path: path, wantCode: http.StatusUnauthorized},
		{name: "other student", path: path, token: f.token(t, f.loner), wantCode: http.StatusNotFound},
		{name: "other guide", path: path, token: f.token(t, f.other), wantCode: http.StatusNotFound},
		{name: "unknown student", path: "/v1/students/missing/meeting-slots?projectId=x", token: f.token(t, f.hod), wantCode: http.StatusNotFound},
		{
			name: "project required", path: "/v1/students/" + f.student.ID + "/meeting-slots", token: f.token(t, f.student),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"projectId": "this field is required"}),
		},
	})

	for _, usr := range []struct {
		name  string
		token string
	}{
		{"student", f.token(t, f.student)},
		{"guide", f.token(t, f.guide)},
		{"HOD", f.token(t, f.hod)},
	} {
		t.Run(usr.name, func(t *testing.T) {
			rec := f.serve(http.MethodGet, path, usr.token)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var slots []meeting.Meeting
			unmarshal(t, rec, &slots)
			require.Len(t, slots, meeting.SlotCount)
			for i, s := range slots {
				assert.Equal(t, i+1, s.MeetingNumber)
				assert.Equal(t, i != 2, s.IsPlaceholder, "slot %d", i+1)
			}
			assert.Equal(t, meeting.StatusScheduled, slots[2].Status)
			assert.Equal(t, meeting.StatusNotConducted, slots[0].Status)
			assert.Equal(t, f.student.ID, slots[0].StudentID)
		})
	}
}
