package main

import (
	"bytes"
	"database/sql"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/rs/zerolog"
)

var testStart = time.Date(2025, 10, 31, 8, 0, 0, 0, time.UTC)

func testSettings() Settings {
	return Settings{
		EventTitle:            "Open House",
		Location:              "Main Hall",
		SlotMinutes:           10,
		SlotCapacity:          1,
		ReminderMinutesBefore: 15,
		AdminPin:              "4321",
		Schedule:              Schedule{Date: "2025-10-31", Start: "09:00", End: "09:30"},
	}
}

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	repo := NewSQLiteRepository(db)
	if err := repo.CreateTables(); err != nil {
		t.Fatalf("CreateTables: %v", err)
	}
	return repo
}

type fixture struct {
	repo     *SQLiteRepository
	clock    *fakeClock
	settings *SettingsStore
	registry *Registry
}

func newFixture(t *testing.T, s Settings) *fixture {
	t.Helper()
	repo := newTestRepo(t)
	clock := newFakeClock(testStart)
	store, err := NewSettingsStore(repo, time.UTC, s)
	if err != nil {
		t.Fatalf("NewSettingsStore: %v", err)
	}
	reg, err := NewRegistry(repo, store, NewIDGenerator(nil), clock)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return &fixture{repo: repo, clock: clock, settings: store, registry: reg}
}

func mustCreate(t *testing.T, r *Registry, req CreateRequest) Ticket {
	t.Helper()
	tk, err := r.Create(req)
	if err != nil {
		t.Fatalf("Create(%+v): %v", req, err)
	}
	return tk
}

// fakeBot records everything the handlers send.
type fakeBot struct {
	mu        sync.Mutex
	sent      []tgbotapi.Chattable
	callbacks []tgbotapi.CallbackConfig
	sendErr   error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return tgbotapi.Message{}, b.sendErr
	}
	b.sent = append(b.sent, c)
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) AnswerCallbackQuery(c tgbotapi.CallbackConfig) (tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks = append(b.callbacks, c)
	return tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	return "https://files.example/" + fileID, nil
}

func (b *fakeBot) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (b *fakeBot) lastText() string {
	texts := b.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func (b *fakeBot) documents() []tgbotapi.DocumentConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []tgbotapi.DocumentConfig
	for _, c := range b.sent {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

func (b *fakeBot) photos() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.sent {
		if _, ok := c.(tgbotapi.PhotoConfig); ok {
			n++
		}
	}
	return n
}

func (b *fakeBot) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = nil
	b.callbacks = nil
}

type appFixture struct {
	app   *App
	bot   *fakeBot
	clock *fakeClock
	repo  *SQLiteRepository
	files map[string][]byte
}

func newAppFixture(t *testing.T, s Settings) *appFixture {
	t.Helper()
	repo := newTestRepo(t)
	bot := &fakeBot{}
	clock := newFakeClock(testStart)
	cfg := &Config{AdminUsers: []string{"organizer"}, Location: time.UTC}
	app, err := newApp(bot, cfg, repo, clock, NewIDGenerator(nil), s, zerolog.Nop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	f := &appFixture{app: app, bot: bot, clock: clock, repo: repo, files: map[string][]byte{}}
	app.download = func(url string) (io.ReadCloser, error) {
		data, ok := f.files[url]
		if !ok {
			return nil, errors.New("not found")
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return f
}

func textMessage(chatID int64, username, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: int(chatID), UserName: username},
		Chat: &tgbotapi.Chat{ID: chatID, Type: "private"},
		Text: text,
	}
}

func callback(chatID int64, username, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: int(chatID), UserName: username},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}
}
