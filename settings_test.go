package main

import (
	"errors"
	"testing"
	"time"
)

func TestMergeKeepsOtherFields(t *testing.T) {
	base := testSettings()
	title := "Late Night"
	capacity := 4
	got, err := base.Merge(SettingsPatch{EventTitle: &title, SlotCapacity: &capacity})
	if err != nil {
		t.Fatal(err)
	}
	want := base
	want.EventTitle = title
	want.SlotCapacity = capacity
	if got != want {
		t.Errorf("Merge = %+v, want %+v", got, want)
	}
}

func TestMergeRejectsInvalid(t *testing.T) {
	base := testSettings()
	short := MinSlotMinutes - 1
	zero := 0
	negative := -1
	blank := " "
	badDate := "31.10.2025"
	badTime := "25:99"

	patches := map[string]SettingsPatch{
		"slot minutes": {SlotMinutes: &short},
		"capacity":     {SlotCapacity: &zero},
		"reminder":     {ReminderMinutesBefore: &negative},
		"title":        {EventTitle: &blank},
		"pin":          {AdminPin: &blank},
		"date":         {Date: &badDate},
		"end":          {End: &badTime},
	}
	for name, p := range patches {
		got, err := base.Merge(p)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: got %v, want ValidationError", name, err)
		}
		if got != base {
			t.Errorf("%s: settings changed on error", name)
		}
	}
}

func TestSettingsStorePersists(t *testing.T) {
	repo := newTestRepo(t)
	store, err := NewSettingsStore(repo, time.UTC, testSettings())
	if err != nil {
		t.Fatal(err)
	}
	loc := "Room 2"
	if _, err := store.Update(SettingsPatch{Location: &loc}); err != nil {
		t.Fatal(err)
	}

	// A different fallback must not win over persisted settings.
	reopened, err := NewSettingsStore(repo, time.UTC, DefaultSettings(testStart))
	if err != nil {
		t.Fatal(err)
	}
	got := reopened.Get()
	if got.Location != "Room 2" || got.EventTitle != "Open House" || got.SlotMinutes != 10 {
		t.Errorf("reopened settings = %+v", got)
	}
}

func TestSettingsStoreUpdateInvalid(t *testing.T) {
	repo := newTestRepo(t)
	store, err := NewSettingsStore(repo, time.UTC, testSettings())
	if err != nil {
		t.Fatal(err)
	}
	zero := 0
	if _, err := store.Update(SettingsPatch{SlotCapacity: &zero}); err == nil {
		t.Fatal("expected error")
	}
	if store.Get().SlotCapacity != 1 {
		t.Error("invalid update changed the store")
	}
	saved, _ := repo.LoadSettings()
	if saved.SlotCapacity != 1 {
		t.Error("invalid update was persisted")
	}
}

func TestSettingsStoreRejectsInvalidFallback(t *testing.T) {
	s := testSettings()
	s.SlotMinutes = 1
	if _, err := NewSettingsStore(newTestRepo(t), time.UTC, s); err == nil {
		t.Fatal("expected error for invalid fallback settings")
	}
}

func TestDefaultSettingsAreValid(t *testing.T) {
	s := DefaultSettings(testStart)
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if s.Schedule.Date != "2025-10-31" {
		t.Errorf("date = %s", s.Schedule.Date)
	}
	slots, err := BuildSlots(s, time.UTC)
	if err != nil || len(slots) != 28 {
		t.Errorf("default slots = %d, %v", len(slots), err)
	}
}
