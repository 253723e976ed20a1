package main

import (
	"errors"
	"testing"
	"time"
)

func TestBuildSlotsExample(t *testing.T) {
	slots, err := BuildSlots(testSettings(), time.UTC)
	if err != nil {
		t.Fatalf("BuildSlots: %v", err)
	}
	want := []struct{ id, label string }{
		{"2025-10-31-00", "09:00-09:10"},
		{"2025-10-31-01", "09:10-09:20"},
		{"2025-10-31-02", "09:20-09:30"},
	}
	if len(slots) != len(want) {
		t.Fatalf("got %d slots, want %d", len(slots), len(want))
	}
	for i, w := range want {
		if slots[i].ID != w.id || slots[i].Label != w.label {
			t.Errorf("slot %d = %s %s, want %s %s", i, slots[i].ID, slots[i].Label, w.id, w.label)
		}
	}
}

func TestBuildSlotsCount(t *testing.T) {
	tests := []struct {
		start, end string
		minutes    int
		want       int
	}{
		{"09:00", "10:00", 15, 4},
		{"09:00", "09:25", 10, 2}, // trailing 5 minutes dropped
		{"09:00", "09:05", 10, 0},
		{"08:00", "20:00", 5, 144},
		{"10:00", "10:00", 5, 0},
		{"11:00", "10:00", 5, 0},
	}
	for _, tt := range tests {
		s := testSettings()
		s.Schedule.Start, s.Schedule.End, s.SlotMinutes = tt.start, tt.end, tt.minutes
		slots, err := BuildSlots(s, time.UTC)
		if err != nil {
			t.Fatalf("%s-%s/%d: %v", tt.start, tt.end, tt.minutes, err)
		}
		if len(slots) != tt.want {
			t.Errorf("%s-%s/%d: got %d slots, want %d", tt.start, tt.end, tt.minutes, len(slots), tt.want)
		}
		step := time.Duration(tt.minutes) * time.Minute
		_, end, _ := s.Schedule.Bounds(time.UTC)
		for i, sl := range slots {
			if sl.End.Sub(sl.Start) != step {
				t.Errorf("slot %s lasts %v", sl.ID, sl.End.Sub(sl.Start))
			}
			if i > 0 && !slots[i-1].End.Equal(sl.Start) {
				t.Errorf("slot %s does not follow %s", sl.ID, slots[i-1].ID)
			}
			if sl.End.After(end) {
				t.Errorf("slot %s ends after the schedule", sl.ID)
			}
		}
	}
}

func TestBuildSlotsStableIDs(t *testing.T) {
	a, _ := BuildSlots(testSettings(), time.UTC)
	b, _ := BuildSlots(testSettings(), time.UTC)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("rebuild differs at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestBuildSlotsRejectsBadInput(t *testing.T) {
	s := testSettings()
	s.SlotMinutes = 0
	var verr *ValidationError
	if _, err := BuildSlots(s, time.UTC); !errors.As(err, &verr) {
		t.Errorf("zero slot minutes: got %v, want ValidationError", err)
	}

	s = testSettings()
	s.Schedule.Start = "9am"
	if _, err := BuildSlots(s, time.UTC); !errors.As(err, &verr) {
		t.Errorf("bad start: got %v, want ValidationError", err)
	}
}

func TestBuildSlotsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	slots, err := BuildSlots(testSettings(), loc)
	if err != nil {
		t.Fatal(err)
	}
	if got := slots[0].Start.UTC().Hour(); got != 7 {
		t.Errorf("09:00 at UTC+2 is %d:00 UTC, want 7", got)
	}
	if slots[0].Label != "09:00-09:10" {
		t.Errorf("label = %q", slots[0].Label)
	}
}

func TestCountForSlot(t *testing.T) {
	if n := CountForSlot(nil, "2025-10-31-00"); n != 0 {
		t.Errorf("empty list count = %d", n)
	}
	tickets := []Ticket{{SlotID: "a"}, {SlotID: "b"}, {SlotID: "a"}}
	if n := CountForSlot(tickets, "a"); n != 2 {
		t.Errorf("count a = %d, want 2", n)
	}
	if n := CountForSlot(tickets, "c"); n != 0 {
		t.Errorf("count c = %d, want 0", n)
	}
}

func TestSlotAvailability(t *testing.T) {
	slots, _ := BuildSlots(testSettings(), time.UTC)
	tickets := []Ticket{{SlotID: slots[1].ID}}
	now := slots[0].End.Add(time.Minute)

	got := SlotAvailability(slots, tickets, 1, now)
	if !got[0].Past || got[0].Full || got[0].Selectable() {
		t.Errorf("slot 0: %+v, want past", got[0])
	}
	if got[1].Past || !got[1].Full || got[1].Remaining != 0 || got[1].Selectable() {
		t.Errorf("slot 1: %+v, want full", got[1])
	}
	if !got[2].Selectable() || got[2].Remaining != 1 {
		t.Errorf("slot 2: %+v, want selectable with 1 left", got[2])
	}
}
