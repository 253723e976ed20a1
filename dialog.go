package main

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

// DialogState represents the current state of a chat's dialog with the bot
type DialogState int

const (
	NoDialog DialogState = iota
	WaitingForName
	WaitingForContact
	WaitingForImport
)

const maxNameLength = 100

// UserDialogState stores the dialog state for a chat
type UserDialogState struct {
	State    DialogState
	SlotID   string
	UserData map[string]string // For storing temporary data during dialog
}

// DialogManager manages dialog states and PIN-unlocked admin sessions
type DialogManager struct {
	states   map[int64]*UserDialogState // Map of chat id to dialog state
	unlocked map[int64]bool             // Chats that entered the admin PIN
	mu       sync.RWMutex
}

// NewDialogManager creates a new DialogManager
func NewDialogManager() *DialogManager {
	return &DialogManager{
		states:   make(map[int64]*UserDialogState),
		unlocked: make(map[int64]bool),
	}
}

// SetState sets the dialog state for a chat
func (dm *DialogManager) SetState(chatID int64, state DialogState, slotID string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if _, exists := dm.states[chatID]; !exists {
		dm.states[chatID] = &UserDialogState{
			UserData: make(map[string]string),
		}
	}

	dm.states[chatID].State = state
	dm.states[chatID].SlotID = slotID
}

// GetState gets the dialog state for a chat
func (dm *DialogManager) GetState(chatID int64) (DialogState, string) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if state, exists := dm.states[chatID]; exists {
		return state.State, state.SlotID
	}
	return NoDialog, ""
}

// SetUserData sets temporary data for a chat during dialog
func (dm *DialogManager) SetUserData(chatID int64, key, value string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if _, exists := dm.states[chatID]; !exists {
		dm.states[chatID] = &UserDialogState{
			UserData: make(map[string]string),
		}
	}

	dm.states[chatID].UserData[key] = value
}

// GetUserData gets temporary data for a chat during dialog
func (dm *DialogManager) GetUserData(chatID int64, key string) string {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if state, exists := dm.states[chatID]; exists {
		return state.UserData[key]
	}
	return ""
}

// ClearState clears the dialog state for a chat
func (dm *DialogManager) ClearState(chatID int64) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	delete(dm.states, chatID)
}

// Unlock marks the chat as admin after a correct PIN
func (dm *DialogManager) Unlock(chatID int64) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.unlocked[chatID] = true
}

// Lock ends the PIN admin session of the chat
func (dm *DialogManager) Lock(chatID int64) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	delete(dm.unlocked, chatID)
}

// IsUnlocked reports whether the chat entered the admin PIN
func (dm *DialogManager) IsUnlocked(chatID int64) bool {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.unlocked[chatID]
}

// ValidateName validates that the name is not blank and not overly long
func ValidateName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed != "" && utf8.RuneCountInString(trimmed) <= maxNameLength
}

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{4,19}$`)
)

// ValidateContact accepts an email address or a phone number
func ValidateContact(contact string) bool {
	contact = strings.TrimSpace(contact)
	return emailRegex.MatchString(contact) || phoneRegex.MatchString(contact)
}
