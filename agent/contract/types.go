package contract

import "time"

// Slot is a bookable coordinate. Two slots are equal iff both fields are
// equal; a slot is not a record, just an address into the calendar.
type Slot struct {
	Date string `json:"date"` // YYYY-MM-DD
	Time string `json:"time"` // HH:MM, 24-hour
}

// String renders the user-facing form, e.g. "2025-03-10 at 14:00".
func (s Slot) String() string {
	return s.Date + " at " + s.Time
}

type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "booked"
	StatusCancelled AppointmentStatus = "cancelled"
)

type Appointment struct {
	ID            int64             `json:"id"`
	ContactNumber string            `json:"contact_number"`
	Name          string            `json:"name,omitempty"`
	SlotDate      string            `json:"slot_date"`
	SlotTime      string            `json:"slot_time"`
	Status        AppointmentStatus `json:"status"`
	Notes         string            `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (a Appointment) Slot() Slot {
	return Slot{Date: a.SlotDate, Time: a.SlotTime}
}

type User struct {
	ContactNumber string    `json:"contact_number"`
	Name          string    `json:"name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ConversationSummary is the durable close-out record, written exactly once
// per conversation.
type ConversationSummary struct {
	ContactNumber string    `json:"contact_number"`
	Summary       string    `json:"summary"`
	Preferences   []string  `json:"preferences"`
	BookedSlots   []string  `json:"booked_slots"`
	CreatedAt     time.Time `json:"created_at"`
}

/* ------------------------------ results ------------------------------- */

// Outcome tags the expected business results of booking operations. These
// are successful returns, not errors: a conflict is something to tell the
// caller, not a fault to recover from.
type Outcome string

const (
	OutcomeBooked    Outcome = "booked"
	OutcomeModified  Outcome = "modified"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeConflict  Outcome = "conflict"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeNoChange  Outcome = "no_change"
)

type BookResult struct {
	Outcome     Outcome      `json:"outcome"`
	Slot        Slot         `json:"slot"`
	Appointment *Appointment `json:"appointment,omitempty"`
	Message     string       `json:"message"`
}

type ModifyResult struct {
	Outcome Outcome `json:"outcome"`
	Old     Slot    `json:"old"`
	New     Slot    `json:"new"`
	Message string  `json:"message"`
}

type CancelResult struct {
	Outcome Outcome `json:"outcome"`
	Slot    Slot    `json:"slot"`
	Message string  `json:"message"`
}

type EndResult struct {
	ContactNumber string `json:"contact_number"`
	Message       string `json:"message"`
}

// IdentityData is the resolved caller identity, with the source that won.
type IdentityData struct {
	ContactNumber string `json:"contact_number"`
	Name          string `json:"name,omitempty"`
	Source        string `json:"source,omitempty"`
}

/* ------------------------------- events -------------------------------- */

// ToolEvent is the envelope pushed to the connected client after each tool
// call. Delivery is best-effort.
type ToolEvent struct {
	Type   string         `json:"type"`
	Tool   string         `json:"tool,omitempty"`
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
	TS     string         `json:"ts,omitempty"`
}

// CallSummaryEvent mirrors the persisted summary for the client.
type CallSummaryEvent struct {
	Type          string   `json:"type"`
	Summary       string   `json:"summary"`
	Preferences   []string `json:"preferences"`
	BookedSlots   []string `json:"booked_slots"`
	ContactNumber string   `json:"contact_number"`
	CreatedAt     string   `json:"created_at"`
}

const (
	EventTypeToolCall    = "tool_call"
	EventTypeCallSummary = "call_summary"
	EventTypeUserData    = "user_data"
)

// ToolResult is what the tool surface hands back to the conversational
// layer. Error carries a user-recoverable prompt, never a system fault.
type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
