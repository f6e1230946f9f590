package contract

import "context"

// Gateway is the narrow persistence surface the orchestrator writes through.
// Queries return ErrNotFound for absent rows and wrap any transport failure
// in ErrPersistence. The backing store enforces at most one non-cancelled
// appointment per (slot_date, slot_time); a violated insert or reschedule
// surfaces as ErrSlotTaken.
type Gateway interface {
	UserByPhone(ctx context.Context, contactNumber string) (*User, error)
	// EnsureUser inserts the user if absent; when name is non-empty it also
	// refreshes the stored name. Idempotent.
	EnsureUser(ctx context.Context, contactNumber, name string) error

	BookedSlotsBetween(ctx context.Context, startDate, endDate string) ([]Slot, error)
	// ActiveAppointmentAt returns the non-cancelled appointment holding a
	// coordinate, skipping excludeID when > 0.
	ActiveAppointmentAt(ctx context.Context, slot Slot, excludeID int64) (*Appointment, error)
	// AppointmentFor returns the contact's appointment at a coordinate
	// regardless of status.
	AppointmentFor(ctx context.Context, contactNumber string, slot Slot) (*Appointment, error)
	AppointmentsFor(ctx context.Context, contactNumber string) ([]Appointment, error)

	InsertAppointment(ctx context.Context, appt *Appointment) error
	RescheduleAppointment(ctx context.Context, id int64, to Slot) error
	CancelAppointment(ctx context.Context, id int64, reason string) error

	InsertSummary(ctx context.Context, sum *ConversationSummary) error
}

// Notifier delivers one event to the connected client. Callers treat
// delivery as fire-and-forget: errors are logged, never propagated.
type Notifier interface {
	Notify(ctx context.Context, payload any) error
}

// Participant is the connected remote peer as the identity layer sees it:
// client-controlled attributes and an opaque metadata blob.
type Participant interface {
	Identity() string
	Attributes() map[string]string
	Metadata() string
}

// SessionCloser terminates the hosting voice session. Shutdown after a
// conversation ends is scheduled with a grace delay and never awaited.
type SessionCloser interface {
	Shutdown()
}
