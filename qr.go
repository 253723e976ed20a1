package main

import "github.com/skip2/go-qrcode"

const qrSize = 256

// TicketQRCode renders the ticket code as a PNG for the door check.
func TicketQRCode(t Ticket) ([]byte, error) {
	return qrcode.Encode(t.ID, qrcode.Medium, qrSize)
}
