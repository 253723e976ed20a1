package main

import (
	"crypto/rand"
	"io"
	"math/big"
)

const (
	idLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	idDigits  = "0123456789"

	idLetterCount = 5
	idDigitCount  = 3
)

// IDGenerator produces ticket codes such as "KQZTA407".
// Every character is drawn independently and uniformly.
type IDGenerator struct {
	rand io.Reader
}

// NewIDGenerator returns a generator reading from r, or crypto/rand when r
// is nil.
func NewIDGenerator(r io.Reader) *IDGenerator {
	if r == nil {
		r = rand.Reader
	}
	return &IDGenerator{rand: r}
}

// Generate draws codes until one is not in used.
func (g *IDGenerator) Generate(used map[string]struct{}) (string, error) {
	for {
		id, err := g.candidate()
		if err != nil {
			return "", err
		}
		if _, taken := used[id]; !taken {
			return id, nil
		}
	}
}

func (g *IDGenerator) candidate() (string, error) {
	b := make([]byte, 0, idLetterCount+idDigitCount)
	var err error
	if b, err = g.appendFrom(b, idLetters, idLetterCount); err != nil {
		return "", err
	}
	if b, err = g.appendFrom(b, idDigits, idDigitCount); err != nil {
		return "", err
	}
	return string(b), nil
}

func (g *IDGenerator) appendFrom(b []byte, charset string, n int) ([]byte, error) {
	max := big.NewInt(int64(len(charset)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(g.rand, max)
		if err != nil {
			return nil, err
		}
		b = append(b, charset[idx.Int64()])
	}
	return b, nil
}

// ValidTicketID reports whether s has the ticket code shape.
func ValidTicketID(s string) bool {
	if len(s) != idLetterCount+idDigitCount {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if i < idLetterCount {
			if c < 'A' || c > 'Z' {
				return false
			}
		} else if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
