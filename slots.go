package main

import (
	"fmt"
	"time"
)

// BuildSlots cuts the schedule into consecutive slots of SlotMinutes.
// A trailing remainder shorter than a full slot is dropped.
func BuildSlots(s Settings, loc *time.Location) ([]Slot, error) {
	if s.SlotMinutes <= 0 {
		return nil, &ValidationError{Field: "slot minutes", Reason: "must be positive"}
	}
	start, end, err := s.Schedule.Bounds(loc)
	if err != nil {
		return nil, err
	}
	step := time.Duration(s.SlotMinutes) * time.Minute

	var slots []Slot
	for cursor, i := start, 0; !cursor.Add(step).After(end); cursor, i = cursor.Add(step), i+1 {
		next := cursor.Add(step)
		slots = append(slots, Slot{
			ID:    fmt.Sprintf("%s-%02d", s.Schedule.Date, i),
			Label: slotLabel(cursor, next, loc),
			Start: cursor,
			End:   next,
		})
	}
	return slots, nil
}

// FindSlot returns the slot with the given id.
func FindSlot(slots []Slot, id string) (Slot, bool) {
	for _, s := range slots {
		if s.ID == id {
			return s, true
		}
	}
	return Slot{}, false
}

// CountForSlot counts the tickets issued for slotID.
func CountForSlot(tickets []Ticket, slotID string) int {
	n := 0
	for _, t := range tickets {
		if t.SlotID == slotID {
			n++
		}
	}
	return n
}

// SlotStatus is a slot together with its occupancy at a given moment.
type SlotStatus struct {
	Slot
	Taken     int
	Remaining int
	Full      bool
	Past      bool
}

// Selectable reports whether new tickets may be requested for the slot.
func (s SlotStatus) Selectable() bool {
	return !s.Full && !s.Past
}

// SlotAvailability computes the occupancy of every slot.
func SlotAvailability(slots []Slot, tickets []Ticket, capacity int, now time.Time) []SlotStatus {
	out := make([]SlotStatus, 0, len(slots))
	for _, s := range slots {
		taken := CountForSlot(tickets, s.ID)
		remaining := capacity - taken
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, SlotStatus{
			Slot:      s,
			Taken:     taken,
			Remaining: remaining,
			Full:      taken >= capacity,
			Past:      s.End.Before(now),
		})
	}
	return out
}
