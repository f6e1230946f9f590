// Package state holds the per-conversation mutable record shared by every
// tool invocation in one voice session.
package state

import (
	"strings"
	"sync"

	contractx "github.com/frontdeskai/frontdesk/agent/contract"
)

// ConversationState is a point-in-time copy of a session's accumulated
// facts. Preferences and booked slots accumulate in order and are never
// deduplicated.
type ConversationState struct {
	ContactNumber string           `json:"contact_number,omitempty"`
	Name          string           `json:"name,omitempty"`
	Preferences   []string         `json:"preferences,omitempty"`
	BookedSlots   []contractx.Slot `json:"booked_slots,omitempty"`
}

// Session is the live record. All mutation goes through its methods; the
// host may issue overlapping tool calls for one conversation, so every
// accessor serializes on the session mutex.
type Session struct {
	id string

	mu    sync.Mutex
	state ConversationState
}

func NewSession(id string) *Session {
	return &Session{id: id}
}

func (s *Session) ID() string {
	return s.id
}

// Contact returns the established contact number, if any.
func (s *Session) Contact() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ContactNumber, s.state.ContactNumber != ""
}

func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Name
}

// SetIdentity overwrites the established identity. Only the explicit
// identify path may do this; opportunistic sources use FillIdentity.
func (s *Session) SetIdentity(contactNumber, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if contactNumber != "" {
		s.state.ContactNumber = contactNumber
	}
	if name = strings.TrimSpace(name); name != "" {
		s.state.Name = name
	}
}

// FillIdentity sets contact number and name only where they are still
// empty. A populated contact number is never silently replaced.
func (s *Session) FillIdentity(contactNumber, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.ContactNumber == "" && contactNumber != "" {
		s.state.ContactNumber = contactNumber
	}
	if name = strings.TrimSpace(name); s.state.Name == "" && name != "" {
		s.state.Name = name
	}
}

func (s *Session) AppendPreference(pref string) {
	if pref == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Preferences = append(s.state.Preferences, pref)
}

func (s *Session) AppendBookedSlot(slot contractx.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.BookedSlots = append(s.state.BookedSlots, slot)
}

// Snapshot copies the current state for read-only use.
func (s *Session) Snapshot() ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	out.Preferences = append([]string(nil), s.state.Preferences...)
	out.BookedSlots = append([]contractx.Slot(nil), s.state.BookedSlots...)
	return out
}
