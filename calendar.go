package main

import (
	"bufio"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	icsTimeLayout = "20060102T150405Z"
	icsLineOctets = 75
)

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

// WriteICS writes a single-event iCalendar document for the ticket.
// Times are the slot snapshot taken when the ticket was issued.
func WriteICS(w io.Writer, t Ticket, s Settings, stamp time.Time) error {
	// bufio.Writer keeps the first write error and Flush returns it.
	bw := bufio.NewWriter(w)
	line := func(parts ...string) {
		writeFolded(bw, strings.Join(parts, ""))
	}

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:-//ticketbot//numbered tickets//EN")
	line("CALSCALE:GREGORIAN")
	line("BEGIN:VEVENT")
	line("UID:", t.ID)
	line("DTSTAMP:", stamp.UTC().Format(icsTimeLayout))
	line("DTSTART:", t.SlotStart.UTC().Format(icsTimeLayout))
	line("DTEND:", t.SlotEnd.UTC().Format(icsTimeLayout))
	line("SUMMARY:", icsEscaper.Replace(s.EventTitle))
	if s.Location != "" {
		line("LOCATION:", icsEscaper.Replace(s.Location))
	}
	line("DESCRIPTION:", icsEscaper.Replace("Ticket "+t.ID+" for "+t.Name))
	line("END:VEVENT")
	line("END:VCALENDAR")
	return bw.Flush()
}

// writeFolded writes one content line, folding it into continuation lines
// that start with a space so that no line exceeds 75 octets. Multi-byte
// characters are never split.
func writeFolded(w *bufio.Writer, content string) {
	limit := icsLineOctets
	for len(content) > limit {
		n := limit
		for n > 0 && !utf8.RuneStart(content[n]) {
			n--
		}
		w.WriteString(content[:n])
		w.WriteString("\r\n ")
		content = content[n:]
		limit = icsLineOctets - 1
	}
	w.WriteString(content)
	w.WriteString("\r\n")
}
