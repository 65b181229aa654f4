package meeting

import (
	"fmt"
	"sort"
)

// SlotConflict records non-cancelled meetings sharing a meeting number.
type SlotConflict struct {
	MeetingNumber int
	Kept          Meeting
	Dropped       []Meeting
}

func (c SlotConflict) String() string {
	ids := make([]string, 0, len(c.Dropped))
	for _, m := range c.Dropped {
		ids = append(ids, m.ID)
	}
	return fmt.Sprintf("meeting %d: kept %s, dropped %v", c.MeetingNumber, c.Kept.ID, ids)
}

// Placeholder returns the synthetic record for an empty slot.
func Placeholder(number int) Meeting {
	return Meeting{
		Title:         fmt.Sprintf("Meeting %d", number),
		MeetingNumber: number,
		Status:        StatusNotConducted,
		IsPlaceholder: true,
	}
}

// GenerateSlots returns exactly SlotCount meetings ordered by meeting number, filling
// empty slots with placeholders. Cancelled meetings and numbers outside 1..SlotCount are ignored.
// When several meetings claim a slot, the most recently scheduled one wins and the others are
// reported as conflicts.
func GenerateSlots(meetings []Meeting) ([]Meeting, []SlotConflict) {
	bySlot := make(map[int][]Meeting, SlotCount)
	for _, m := range meetings {
		if m.Status == StatusCancelled || m.IsPlaceholder || m.MeetingNumber < 1 || m.MeetingNumber > SlotCount {
			continue
		}
		bySlot[m.MeetingNumber] = append(bySlot[m.MeetingNumber], m)
	}

	slots := make([]Meeting, 0, SlotCount)
	var conflicts []SlotConflict
	for i := 1; i <= SlotCount; i++ {
		candidates := bySlot[i]
		if len(candidates) == 0 {
			slots = append(slots, Placeholder(i))
			continue
		}

		sorted := make([]Meeting, len(candidates))
		copy(sorted, candidates)
		sort.SliceStable(sorted, func(a, b int) bool { return supersedes(sorted[a], sorted[b]) })
		slots = append(slots, sorted[0])
		if len(sorted) > 1 {
			conflicts = append(conflicts, SlotConflict{MeetingNumber: i, Kept: sorted[0], Dropped: sorted[1:]})
		}
	}
	return slots, conflicts
}

// supersedes orders meetings of a slot: later scheduled date, then later update, then greater id.
func supersedes(a, b Meeting) bool {
	if !a.ScheduledDate.Equal(b.ScheduledDate) {
		return a.ScheduledDate.After(b.ScheduledDate)
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID > b.ID
}
