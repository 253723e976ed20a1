package main

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Notifier delivers a reminder for a ticket.
type Notifier interface {
	NotifyReminder(t Ticket) error
}

// ReminderScheduler keeps one cancellable timer per ticket id. It
// implements TicketHooks so the registry drives it directly.
type ReminderScheduler struct {
	mu       sync.Mutex
	clock    Clock
	lead     func() time.Duration
	notifier Notifier
	marker   func(id string) error
	log      zerolog.Logger
	timers   map[string]reminder
	gen      uint64
}

type reminder struct {
	timer Timer
	gen   uint64
}

// NewReminderScheduler creates a scheduler. lead is consulted on every
// Schedule call; marker records the notified flag after a reminder fired.
func NewReminderScheduler(clock Clock, lead func() time.Duration, notifier Notifier, marker func(id string) error, log zerolog.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		clock:    clock,
		lead:     lead,
		notifier: notifier,
		marker:   marker,
		log:      log.With().Str("component", "reminders").Logger(),
		timers:   make(map[string]reminder),
	}
}

// Schedule arms a reminder at SlotStart minus the lead time. It reports
// false when the ticket was already notified, has no chat to remind or the
// reminder moment has passed.
func (s *ReminderScheduler) Schedule(t Ticket) bool {
	if t.Notified || t.ChatID == 0 {
		return false
	}
	delay := t.SlotStart.Add(-s.lead()).Sub(s.clock.Now())
	if delay <= 0 {
		s.log.Debug().Str("ticket", t.ID).Msg("reminder moment already passed")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.timers[t.ID]; ok {
		old.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timers[t.ID] = reminder{timer: s.clock.AfterFunc(delay, func() { s.fire(t, gen) }), gen: gen}
	s.log.Debug().Str("ticket", t.ID).Dur("in", delay).Msg("reminder scheduled")
	return true
}

func (s *ReminderScheduler) fire(t Ticket, gen uint64) {
	s.mu.Lock()
	if current, ok := s.timers[t.ID]; !ok || current.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.timers, t.ID)
	s.mu.Unlock()

	if err := s.notifier.NotifyReminder(t); err != nil {
		s.log.Warn().Err(err).Str("ticket", t.ID).Msg("reminder delivery failed")
	}
	if err := s.marker(t.ID); err != nil {
		s.log.Error().Err(err).Str("ticket", t.ID).Msg("could not mark ticket notified")
	}
}

// Cancel stops the pending reminder of id, if any.
func (s *ReminderScheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.timers[id]
	if !ok {
		return false
	}
	r.timer.Stop()
	delete(s.timers, id)
	return true
}

// CancelAll stops every pending reminder.
func (s *ReminderScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.timers {
		r.timer.Stop()
		delete(s.timers, id)
	}
}

// Reschedule drops all pending reminders and arms them again for tickets.
// It returns how many reminders are pending afterwards.
func (s *ReminderScheduler) Reschedule(tickets []Ticket) int {
	s.CancelAll()
	n := 0
	for _, t := range tickets {
		if s.Schedule(t) {
			n++
		}
	}
	return n
}

// Pending returns the number of armed reminders.
func (s *ReminderScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *ReminderScheduler) TicketIssued(t Ticket) { s.Schedule(t) }
func (s *ReminderScheduler) TicketRemoved(id string) { s.Cancel(id) }
func (s *ReminderScheduler) TicketsReplaced(tickets []Ticket) { s.Reschedule(tickets) }
