package meeting

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dissertrack/core"
)

func TestCanTransition(t *testing.T) {
	allowed := map[Status][]Status{
		StatusScheduled:   {StatusCompleted, StatusCancelled, StatusRescheduled},
		StatusRescheduled: {StatusCompleted, StatusCancelled, StatusRescheduled},
		StatusCancelled:   {StatusScheduled},
	}
	all := []Status{StatusScheduled, StatusCompleted, StatusCancelled, StatusRescheduled, StatusRejected, StatusNotConducted}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equalf(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}

	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusNotConducted.IsTerminal())
	assert.Equal(t, []Status{StatusScheduled}, Targets(StatusCancelled))
}

func TestRequestTransition(t *testing.T) {
	newDate := time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)
	scheduled := Meeting{
		ID:             "m1",
		Status:         StatusScheduled,
		MeetingSummary: "agenda",
		StudentPoints:  "",
		GuideRemarks:   "prepare slides",
	}

	tests := []struct {
		name    string
		meeting Meeting
		target  Status
		content ContentUpdate
		date    *time.Time
		want    UpdatePayload
		wantErr error
	}{
		{
			name:    "complete keeps content and fills placeholders",
			meeting: scheduled,
			target:  StatusCompleted,
			want: UpdatePayload{
				Status:         StatusCompleted,
				MeetingSummary: "agenda",
				StudentPoints:  NoPoints,
				GuideRemarks:   "prepare slides",
			},
		},
		{
			name:    "set and clear",
			meeting: scheduled,
			target:  StatusCompleted,
			content: ContentUpdate{MeetingSummary: Set("  done  "), GuideRemarks: Clear(), StudentPoints: Set(" ")},
			want: UpdatePayload{
				Status:         StatusCompleted,
				MeetingSummary: "done",
				StudentPoints:  NoPoints,
				GuideRemarks:   "",
			},
		},
		{
			name:    "reschedule with date",
			meeting: scheduled,
			target:  StatusRescheduled,
			date:    &newDate,
			want: UpdatePayload{
				Status:         StatusRescheduled,
				MeetingSummary: "agenda",
				StudentPoints:  NoPoints,
				GuideRemarks:   "prepare slides",
				ScheduledDate:  &newDate,
			},
		},
		{
			name:    "reschedule without date",
			meeting: scheduled,
			target:  StatusRescheduled,
			wantErr: ErrDateRequired,
		},
		{
			name:    "reschedule with zero date",
			meeting: scheduled,
			target:  StatusRescheduled,
			date:    &time.Time{},
			wantErr: ErrDateRequired,
		},
		{
			name:    "terminal",
			meeting: Meeting{ID: "m2", Status: StatusCompleted},
			target:  StatusScheduled,
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "placeholder",
			meeting: Placeholder(1),
			target:  StatusCompleted,
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "cancelled back to scheduled",
			meeting: Meeting{ID: "m3", Status: StatusCancelled},
			target:  StatusScheduled,
			want: UpdatePayload{
				Status:         StatusScheduled,
				MeetingSummary: NoSummary,
				StudentPoints:  NoPoints,
				GuideRemarks:   NoRemarks,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RequestTransition(tt.meeting, tt.target, tt.content, tt.date)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, errors.Cause(err).(*core.ValidationError).Err)
				assert.Equal(t, core.ValidationFailure, core.FailureKindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpdatePayload_ApplyTo(t *testing.T) {
	at := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	newDate := time.Date(2024, 6, 10, 9, 0, 0, 0, time.FixedZone("EAT", 3*3600))
	m := Meeting{ID: "m1", Status: StatusScheduled, ScheduledDate: day(1), Title: "t"}

	got := UpdatePayload{Status: StatusRescheduled, MeetingSummary: "s", ScheduledDate: &newDate}.ApplyTo(m, at)
	assert.Equal(t, StatusRescheduled, got.Status)
	assert.Equal(t, "s", got.MeetingSummary)
	assert.True(t, got.ScheduledDate.Equal(newDate))
	assert.Equal(t, at, got.UpdatedAt)
	assert.Equal(t, "t", got.Title)

	got = UpdatePayload{Status: StatusCompleted}.ApplyTo(m, at)
	assert.Equal(t, day(1), got.ScheduledDate)
}

func TestStatusUpdate_Content(t *testing.T) {
	empty, value := "", "text"
	su := StatusUpdate{MeetingSummary: &value, GuideRemarks: &empty}
	c := su.Content()
	assert.True(t, c.MeetingSummary.IsSet())
	assert.False(t, c.StudentPoints.IsSet())
	assert.False(t, c.StudentPoints.IsCleared())
	assert.True(t, c.GuideRemarks.IsCleared())
}
