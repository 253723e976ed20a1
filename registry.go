package main

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const slotStartLayout = "2006-01-02 15:04"

// TicketHooks observes registry changes. Calls happen after the registry
// lock is released.
type TicketHooks interface {
	TicketIssued(t Ticket)
	TicketRemoved(id string)
	TicketsReplaced(tickets []Ticket)
}

// CreateRequest carries the attendee input for a new ticket.
type CreateRequest struct {
	Name    string
	Contact string
	SlotID  string
	ChatID  int64
}

// Registry owns the issued ticket list. Every mutation is persisted before
// it becomes visible in memory, so a failed write leaves the list as it was.
type Registry struct {
	mu       sync.Mutex
	repo     Repository
	settings *SettingsStore
	ids      *IDGenerator
	clock    Clock
	hooks    TicketHooks
	tickets  []Ticket
}

// NewRegistry loads the persisted tickets.
func NewRegistry(repo Repository, settings *SettingsStore, ids *IDGenerator, clock Clock) (*Registry, error) {
	tickets, err := repo.ListTickets()
	if err != nil {
		return nil, fmt.Errorf("load tickets: %w", err)
	}
	return &Registry{
		repo:     repo,
		settings: settings,
		ids:      ids,
		clock:    clock,
		tickets:  tickets,
	}, nil
}

// SetHooks installs the change observer. Call before serving requests.
func (r *Registry) SetHooks(h TicketHooks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = h
}

// Create issues a ticket for req.SlotID if the slot exists and has room.
func (r *Registry) Create(req CreateRequest) (Ticket, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Ticket{}, &ValidationError{Field: "name", Reason: "must not be blank"}
	}

	slots, err := r.settings.Slots()
	if err != nil {
		return Ticket{}, err
	}
	slot, ok := FindSlot(slots, req.SlotID)
	if !ok {
		return Ticket{}, &ValidationError{Field: "slot", Reason: fmt.Sprintf("unknown slot %q", req.SlotID)}
	}
	capacity := r.settings.Get().SlotCapacity

	r.mu.Lock()
	if CountForSlot(r.tickets, slot.ID) >= capacity {
		r.mu.Unlock()
		return Ticket{}, &CapacityError{SlotID: slot.ID, Capacity: capacity}
	}
	id, err := r.ids.Generate(r.usedIDs())
	if err != nil {
		r.mu.Unlock()
		return Ticket{}, fmt.Errorf("generate ticket id: %w", err)
	}
	t := Ticket{
		ID:        id,
		Name:      name,
		Contact:   strings.TrimSpace(req.Contact),
		SlotID:    slot.ID,
		SlotStart: slot.Start,
		SlotEnd:   slot.End,
		CreatedAt: r.clock.Now(),
		ChatID:    req.ChatID,
	}
	if err := r.repo.InsertTicket(t); err != nil {
		r.mu.Unlock()
		return Ticket{}, fmt.Errorf("save ticket: %w", err)
	}
	r.tickets = append(r.tickets, t)
	hooks := r.hooks
	r.mu.Unlock()

	if hooks != nil {
		hooks.TicketIssued(t)
	}
	return t, nil
}

// Remove deletes the ticket with id. It reports whether a ticket existed;
// removing a missing id is a no-op.
func (r *Registry) Remove(id string) (bool, error) {
	r.mu.Lock()
	idx := r.indexOf(id)
	if idx < 0 {
		r.mu.Unlock()
		return false, nil
	}
	if err := r.repo.DeleteTicket(id); err != nil {
		r.mu.Unlock()
		return false, fmt.Errorf("delete ticket: %w", err)
	}
	r.tickets = append(r.tickets[:idx:idx], r.tickets[idx+1:]...)
	hooks := r.hooks
	r.mu.Unlock()

	if hooks != nil {
		hooks.TicketRemoved(id)
	}
	return true, nil
}

// List returns the tickets matching filter case-insensitively on id, name,
// contact, slot id or slot start. An empty filter returns everything.
func (r *Registry) List(filter string) []Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(filter))
	out := make([]Ticket, 0, len(r.tickets))
	loc := r.settings.Location()
	for _, t := range r.tickets {
		if q == "" || ticketMatches(t, q, loc) {
			out = append(out, t)
		}
	}
	return out
}

// Get looks a ticket up by id.
func (r *Registry) Get(id string) (Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := r.indexOf(id); idx >= 0 {
		return r.tickets[idx], true
	}
	return Ticket{}, false
}

// ForChat returns the tickets requested from chatID.
func (r *Registry) ForChat(chatID int64) []Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Ticket
	for _, t := range r.tickets {
		if t.ChatID == chatID {
			out = append(out, t)
		}
	}
	return out
}

// Len returns the number of issued tickets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tickets)
}

// ReplaceAll swaps the whole ticket list. Slot references are not checked.
func (r *Registry) ReplaceAll(tickets []Ticket) error {
	next := make([]Ticket, len(tickets))
	copy(next, tickets)

	r.mu.Lock()
	if err := r.repo.ReplaceTickets(next); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("replace tickets: %w", err)
	}
	r.tickets = next
	hooks := r.hooks
	r.mu.Unlock()

	if hooks != nil {
		hooks.TicketsReplaced(r.List(""))
	}
	return nil
}

// MarkNotified records that a reminder was attempted for id.
func (r *Registry) MarkNotified(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(id)
	if idx < 0 || r.tickets[idx].Notified {
		return nil
	}
	if err := r.repo.MarkTicketNotified(id); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	r.tickets[idx].Notified = true
	return nil
}

// Availability reports the occupancy of every current slot.
func (r *Registry) Availability() ([]SlotStatus, error) {
	slots, err := r.settings.Slots()
	if err != nil {
		return nil, err
	}
	capacity := r.settings.Get().SlotCapacity
	r.mu.Lock()
	defer r.mu.Unlock()
	return SlotAvailability(slots, r.tickets, capacity, r.clock.Now()), nil
}

func (r *Registry) usedIDs() map[string]struct{} {
	used := make(map[string]struct{}, len(r.tickets))
	for _, t := range r.tickets {
		used[t.ID] = struct{}{}
	}
	return used
}

func (r *Registry) indexOf(id string) int {
	for i, t := range r.tickets {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func ticketMatches(t Ticket, q string, loc *time.Location) bool {
	fields := []string{t.ID, t.Name, t.Contact, t.SlotID, t.SlotStart.In(loc).Format(slotStartLayout)}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
