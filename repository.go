package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const settingsKey = "settings"

// Repository defines the interface for database operations
type Repository interface {
	CreateTables() error
	LoadSettings() (*Settings, error)
	SaveSettings(s Settings) error
	ListTickets() ([]Ticket, error)
	InsertTicket(t Ticket) error
	DeleteTicket(id string) error
	ReplaceTickets(tickets []Ticket) error
	MarkTicketNotified(id string) error
}

// SQLiteRepository implements the Repository interface
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLiteRepository
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateTables creates the key-value table for settings and the ticket table
func (r *SQLiteRepository) CreateTables() error {
	kvTable := `CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`

	ticketTable := `CREATE TABLE IF NOT EXISTS tickets (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		contact TEXT NOT NULL DEFAULT '',
		slot_id TEXT NOT NULL,
		slot_start TEXT,
		slot_end TEXT,
		created_at TEXT,
		notified INTEGER DEFAULT 0,
		chat_id INTEGER DEFAULT 0
	);`

	if _, err := r.db.Exec(kvTable); err != nil {
		return err
	}
	if _, err := r.db.Exec(ticketTable); err != nil {
		return err
	}
	return nil
}

// LoadSettings returns the persisted settings, or nil if none were saved
func (r *SQLiteRepository) LoadSettings() (*Settings, error) {
	var raw string
	err := r.db.QueryRow("SELECT value FROM kv WHERE key = ?", settingsKey).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var s Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSettings replaces the persisted settings record
func (r *SQLiteRepository) SaveSettings(s Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	stmt, err := r.db.Prepare("INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value")
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(settingsKey, string(raw))
	return err
}

// ListTickets returns every ticket in insertion order
func (r *SQLiteRepository) ListTickets() ([]Ticket, error) {
	rows, err := r.db.Query("SELECT id, name, contact, slot_id, slot_start, slot_end, created_at, notified, chat_id FROM tickets ORDER BY seq ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []Ticket
	for rows.Next() {
		var t Ticket
		var slotStart, slotEnd, createdAt string
		var notified int
		if err := rows.Scan(&t.ID, &t.Name, &t.Contact, &t.SlotID, &slotStart, &slotEnd, &createdAt, &notified, &t.ChatID); err != nil {
			return nil, err
		}
		if t.SlotStart, err = parseStoredTime(slotStart); err != nil {
			return nil, fmt.Errorf("ticket %s slot_start: %w", t.ID, err)
		}
		if t.SlotEnd, err = parseStoredTime(slotEnd); err != nil {
			return nil, fmt.Errorf("ticket %s slot_end: %w", t.ID, err)
		}
		if t.CreatedAt, err = parseStoredTime(createdAt); err != nil {
			return nil, fmt.Errorf("ticket %s created_at: %w", t.ID, err)
		}
		t.Notified = notified == 1
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// InsertTicket appends a ticket
func (r *SQLiteRepository) InsertTicket(t Ticket) error {
	stmt, err := r.db.Prepare(insertTicketSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(ticketArgs(t)...)
	return err
}

// DeleteTicket removes a ticket; deleting a missing id is not an error
func (r *SQLiteRepository) DeleteTicket(id string) error {
	stmt, err := r.db.Prepare("DELETE FROM tickets WHERE id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(id)
	return err
}

// ReplaceTickets swaps the whole ticket list in one transaction
func (r *SQLiteRepository) ReplaceTickets(tickets []Ticket) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM tickets"); err != nil {
		return err
	}
	stmt, err := tx.Prepare(insertTicketSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, t := range tickets {
		if _, err := stmt.Exec(ticketArgs(t)...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// MarkTicketNotified sets the notified flag of a ticket
func (r *SQLiteRepository) MarkTicketNotified(id string) error {
	stmt, err := r.db.Prepare("UPDATE tickets SET notified = 1 WHERE id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(id)
	return err
}

// Time columns are TEXT; the driver would otherwise rewrite DATETIME values.
const storedTimeLayout = time.RFC3339Nano

func parseStoredTime(s string) (time.Time, error) {
	return time.Parse(storedTimeLayout, s)
}

const insertTicketSQL = "INSERT INTO tickets (id, name, contact, slot_id, slot_start, slot_end, created_at, notified, chat_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"

func ticketArgs(t Ticket) []interface{} {
	notified := 0
	if t.Notified {
		notified = 1
	}
	return []interface{}{
		t.ID,
		t.Name,
		t.Contact,
		t.SlotID,
		t.SlotStart.Format(storedTimeLayout),
		t.SlotEnd.Format(storedTimeLayout),
		t.CreatedAt.Format(storedTimeLayout),
		notified,
		t.ChatID,
	}
}
