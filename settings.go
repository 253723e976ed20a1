package main

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// MinSlotMinutes is the shortest slot length accepted by the settings.
const MinSlotMinutes = 5

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Schedule is the time range the slots are cut from.
type Schedule struct {
	Date  string `json:"date" yaml:"date"`   // YYYY-MM-DD
	Start string `json:"start" yaml:"start"` // HH:MM
	End   string `json:"end" yaml:"end"`     // HH:MM
}

// Settings holds the event configuration edited from the admin commands.
type Settings struct {
	EventTitle            string   `json:"eventTitle" yaml:"event_title"`
	Location              string   `json:"location" yaml:"location"`
	SlotMinutes           int      `json:"slotMinutes" yaml:"slot_minutes"`
	SlotCapacity          int      `json:"slotCapacity" yaml:"slot_capacity"`
	ReminderMinutesBefore int      `json:"reminderMinutesBefore" yaml:"reminder_minutes_before"`
	AdminPin              string   `json:"adminPin" yaml:"admin_pin"`
	Schedule              Schedule `json:"schedule" yaml:"schedule"`
}

// DefaultSettings returns the settings used when nothing was persisted yet.
func DefaultSettings(today time.Time) Settings {
	return Settings{
		EventTitle:            "Numbered tickets",
		SlotMinutes:           15,
		SlotCapacity:          10,
		ReminderMinutesBefore: 15,
		AdminPin:              "0000",
		Schedule: Schedule{
			Date:  today.Format(dateLayout),
			Start: "10:00",
			End:   "17:00",
		},
	}
}

// Validate checks every field constraint.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.EventTitle) == "" {
		return &ValidationError{Field: "event title", Reason: "must not be blank"}
	}
	if s.SlotMinutes < MinSlotMinutes {
		return &ValidationError{Field: "slot minutes", Reason: fmt.Sprintf("must be at least %d", MinSlotMinutes)}
	}
	if s.SlotCapacity < 1 {
		return &ValidationError{Field: "slot capacity", Reason: "must be at least 1"}
	}
	if s.ReminderMinutesBefore < 0 {
		return &ValidationError{Field: "reminder minutes", Reason: "must not be negative"}
	}
	if strings.TrimSpace(s.AdminPin) == "" {
		return &ValidationError{Field: "admin pin", Reason: "must not be blank"}
	}
	if _, _, err := s.Schedule.Bounds(time.UTC); err != nil {
		return err
	}
	return nil
}

// Bounds resolves the schedule to absolute instants in loc.
func (sc Schedule) Bounds(loc *time.Location) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, sc.Date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{Field: "schedule date", Reason: "expected YYYY-MM-DD"}
	}
	start, err := atClock(day, sc.Start)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{Field: "schedule start", Reason: "expected HH:MM"}
	}
	end, err := atClock(day, sc.End)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{Field: "schedule end", Reason: "expected HH:MM"}
	}
	return start, end, nil
}

func atClock(day time.Time, hhmm string) (time.Time, error) {
	c, err := time.Parse(clockLayout, hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, day.Location()), nil
}

// SettingsPatch is a partial update; nil fields are left untouched.
type SettingsPatch struct {
	EventTitle            *string
	Location              *string
	SlotMinutes           *int
	SlotCapacity          *int
	ReminderMinutesBefore *int
	AdminPin              *string
	Date                  *string
	Start                 *string
	End                   *string
}

// Merge applies p on top of s and validates the result.
func (s Settings) Merge(p SettingsPatch) (Settings, error) {
	next := s
	if p.EventTitle != nil {
		next.EventTitle = strings.TrimSpace(*p.EventTitle)
	}
	if p.Location != nil {
		next.Location = strings.TrimSpace(*p.Location)
	}
	if p.SlotMinutes != nil {
		next.SlotMinutes = *p.SlotMinutes
	}
	if p.SlotCapacity != nil {
		next.SlotCapacity = *p.SlotCapacity
	}
	if p.ReminderMinutesBefore != nil {
		next.ReminderMinutesBefore = *p.ReminderMinutesBefore
	}
	if p.AdminPin != nil {
		next.AdminPin = strings.TrimSpace(*p.AdminPin)
	}
	if p.Date != nil {
		next.Schedule.Date = strings.TrimSpace(*p.Date)
	}
	if p.Start != nil {
		next.Schedule.Start = strings.TrimSpace(*p.Start)
	}
	if p.End != nil {
		next.Schedule.End = strings.TrimSpace(*p.End)
	}
	if err := next.Validate(); err != nil {
		return s, err
	}
	return next, nil
}

// SettingsStore owns the single settings record and persists every change.
type SettingsStore struct {
	mu       sync.RWMutex
	repo     Repository
	loc      *time.Location
	settings Settings
}

// NewSettingsStore loads persisted settings. When none exist, fallback is
// validated, persisted and used.
func NewSettingsStore(repo Repository, loc *time.Location, fallback Settings) (*SettingsStore, error) {
	saved, err := repo.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	current := fallback
	if saved != nil {
		current = *saved
	} else {
		if err := fallback.Validate(); err != nil {
			return nil, err
		}
		if err := repo.SaveSettings(fallback); err != nil {
			return nil, fmt.Errorf("save settings: %w", err)
		}
	}
	return &SettingsStore{repo: repo, loc: loc, settings: current}, nil
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Location returns the time zone the schedule is interpreted in.
func (s *SettingsStore) Location() *time.Location {
	return s.loc
}

// Update merges p into the current settings and persists the result. On
// error the stored settings are unchanged.
func (s *SettingsStore) Update(p SettingsPatch) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.settings.Merge(p)
	if err != nil {
		return s.settings, err
	}
	if err := s.repo.SaveSettings(next); err != nil {
		return s.settings, fmt.Errorf("save settings: %w", err)
	}
	s.settings = next
	return next, nil
}

// Slots builds the current slot list from the settings.
func (s *SettingsStore) Slots() ([]Slot, error) {
	return BuildSlots(s.Get(), s.loc)
}
