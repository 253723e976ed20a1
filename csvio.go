package main

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const utf8BOM = "\xEF\xBB\xBF"

// GuestName replaces a blank name in imported rows.
const GuestName = "Guest"

var csvHeader = []string{"id", "name", "contact", "slot_label", "slot_id", "created_at"}

// WriteTicketsCSV writes tickets with every field quoted. A UTF-8 BOM is
// written first for better Excel compatibility. csv.Writer only quotes
// fields that need it, so rows are quoted by hand.
func WriteTicketsCSV(w io.Writer, tickets []Ticket, loc *time.Location) error {
	// bufio.Writer keeps the first write error and Flush returns it.
	bw := bufio.NewWriter(w)
	bw.WriteString(utf8BOM)
	writeQuotedRow(bw, csvHeader)
	for _, t := range tickets {
		writeQuotedRow(bw, []string{
			t.ID,
			t.Name,
			t.Contact,
			t.SlotLabel(loc),
			t.SlotID,
			t.CreatedAt.In(loc).Format(time.RFC3339Nano),
		})
	}
	return bw.Flush()
}

func writeQuotedRow(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteString("\r\n")
}

// ImportOptions carries what the import needs to rebuild ticket records.
type ImportOptions struct {
	Slots    []Slot   // Slots are the current slots references resolve against.
	Existing []Ticket // Existing tickets lend their chat and notified state by id.
	IDs      *IDGenerator
	Now      time.Time
	Location *time.Location
}

// ImportResult is the outcome of a lenient CSV import.
type ImportResult struct {
	Tickets  []Ticket
	Warnings []*ImportParseError
}

// ReadTicketsCSV parses an exported ticket list. Row problems are collected
// as warnings and the row is kept with placeholder values; only an
// unreadable file or a missing header fails the whole import.
//
// A slot reference that matches neither a current slot id nor a slot label
// is reassigned to the first current slot.
func ReadTicketsCSV(r io.Reader, opts ImportOptions) (*ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ImportParseError{Reason: err.Error()}
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ImportParseError{Reason: "file is empty"}
		}
		return nil, &ImportParseError{Line: 1, Reason: err.Error()}
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["id"]; !ok {
		if _, ok := cols["name"]; !ok {
			return nil, &ImportParseError{Line: 1, Reason: "header has neither id nor name column"}
		}
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	existing := make(map[string]Ticket, len(opts.Existing))
	for _, t := range opts.Existing {
		existing[t.ID] = t
	}

	res := &ImportResult{}
	warn := func(line int, format string, args ...interface{}) {
		res.Warnings = append(res.Warnings, &ImportParseError{Line: line, Reason: fmt.Sprintf(format, args...)})
	}

	type row struct {
		line   int
		record []string
	}
	var rows []row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				warn(pe.Line, "%v", pe.Err)
				continue
			}
			return nil, &ImportParseError{Reason: err.Error()}
		}
		if isBlankRecord(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, row{line: line, record: record})
	}

	// Codes present in the file or the current list are never handed out to
	// rows that need a fresh one.
	reserved := make(map[string]struct{}, len(rows)+len(existing))
	for id := range existing {
		reserved[id] = struct{}{}
	}
	if i, ok := cols["id"]; ok {
		for _, r := range rows {
			if i < len(r.record) {
				reserved[strings.ToUpper(strings.TrimSpace(r.record[i]))] = struct{}{}
			}
		}
	}
	used := make(map[string]struct{}, len(rows))

	for _, r := range rows {
		line, record := r.line, r.record
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		t := Ticket{
			ID:      strings.ToUpper(field("id")),
			Name:    field("name"),
			Contact: field("contact"),
		}

		if t.Name == "" {
			warn(line, "missing name, using %q", GuestName)
			t.Name = GuestName
		}

		_, dup := used[t.ID]
		if !ValidTicketID(t.ID) || dup {
			id, err := opts.IDs.Generate(reserved)
			if err != nil {
				return nil, fmt.Errorf("generate ticket id: %w", err)
			}
			switch {
			case t.ID == "":
				warn(line, "missing id, assigned %s", id)
			case dup:
				warn(line, "duplicate id %s, assigned %s", t.ID, id)
			default:
				warn(line, "malformed id %q, assigned %s", t.ID, id)
			}
			t.ID = id
		}
		used[t.ID] = struct{}{}
		reserved[t.ID] = struct{}{}

		slot, ok := resolveSlot(opts.Slots, field("slot_id"), field("slot_label"))
		switch {
		case ok:
		case len(opts.Slots) > 0:
			slot = opts.Slots[0]
			warn(line, "slot %q not found, assigned to first slot %s", field("slot_id"), slot.ID)
		default:
			slot = Slot{ID: field("slot_id")}
			warn(line, "no slots configured, slot %q kept unresolved", slot.ID)
		}
		t.SlotID, t.SlotStart, t.SlotEnd = slot.ID, slot.Start, slot.End

		t.CreatedAt = opts.Now
		if raw := field("created_at"); raw != "" {
			if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				t.CreatedAt = ts.In(loc)
			} else {
				warn(line, "bad created_at %q, using import time", raw)
			}
		}

		if prev, ok := existing[t.ID]; ok {
			t.ChatID = prev.ChatID
			t.Notified = prev.Notified
		}
		res.Tickets = append(res.Tickets, t)
	}
	return res, nil
}

func resolveSlot(slots []Slot, id, label string) (Slot, bool) {
	if id != "" {
		if s, ok := FindSlot(slots, id); ok {
			return s, true
		}
	}
	if label != "" {
		for _, s := range slots {
			if s.Label == label {
				return s, true
			}
		}
	}
	return Slot{}, false
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
