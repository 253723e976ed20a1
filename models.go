package main

import (
	"fmt"
	"time"
)

// Slot is a fixed-width entry window derived from the event schedule.
type Slot struct {
	ID    string    // ID is "{date}-{ordinal}", stable for identical settings.
	Label string    // Label is the "HH:MM-HH:MM" wall-clock rendering.
	Start time.Time // Start is inclusive.
	End   time.Time // End is exclusive.
}

// Ticket is an issued entry ticket.
type Ticket struct {
	ID        string    // ID is five uppercase letters followed by three digits.
	Name      string    // Name of the ticket holder.
	Contact   string    // Contact is optional free text (phone, email).
	SlotID    string    // SlotID references a slot; not enforced after issue.
	SlotStart time.Time // SlotStart is copied from the slot at creation.
	SlotEnd   time.Time // SlotEnd is copied from the slot at creation.
	CreatedAt time.Time // CreatedAt is the moment the ticket was issued.
	Notified  bool      // Notified flips to true once a reminder was attempted.
	ChatID    int64     // ChatID is the Telegram chat to remind, 0 if unknown.
}

// SlotLabel renders the ticket's snapshot slot bounds in loc.
func (t Ticket) SlotLabel(loc *time.Location) string {
	return slotLabel(t.SlotStart, t.SlotEnd, loc)
}

func slotLabel(start, end time.Time, loc *time.Location) string {
	return start.In(loc).Format("15:04") + "-" + end.In(loc).Format("15:04")
}

// ValidationError reports a blank required field or an invalid selection.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CapacityError reports that a slot has no places left.
type CapacityError struct {
	SlotID   string
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("slot %s is full (capacity %d)", e.SlotID, e.Capacity)
}

// ImportParseError describes a CSV row that could not be imported as-is.
// Line is 1-based and counts the header; 0 means the whole file.
type ImportParseError struct {
	Line   int
	Reason string
}

func (e *ImportParseError) Error() string {
	if e.Line == 0 {
		return "import: " + e.Reason
	}
	return fmt.Sprintf("import line %d: %s", e.Line, e.Reason)
}
