// Package booking implements the per-conversation orchestrator: the only
// writer of appointment records, driving book / modify / cancel / retrieve
// / identify / end against the persistence gateway.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/frontdeskai/frontdesk/agent/contract"
	"github.com/frontdeskai/frontdesk/agent/identity"
	"github.com/frontdeskai/frontdesk/agent/normalize"
	"github.com/frontdeskai/frontdesk/agent/slots"
	statex "github.com/frontdeskai/frontdesk/agent/state"
)

type Config struct {
	// ShutdownDelay is the grace period between end_conversation and
	// session teardown, so the closing utterance can finish playing.
	ShutdownDelay time.Duration `envconfig:"SHUTDOWN_DELAY" split_words:"true" default:"5s"`
}

// Orchestrator serves one conversation. The gateway may be shared across
// many concurrent conversations; the no-double-booking invariant is
// enforced by the gateway, not by anything process-local here.
type Orchestrator struct {
	gateway     contractx.Gateway
	notifier    contractx.Notifier
	engine      *slots.Engine
	session     *statex.Session
	participant contractx.Participant
	closer      contractx.SessionCloser

	shutdownDelay time.Duration
	now           func() time.Time
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithParticipant attaches the connected participant used as an
// opportunistic identity source.
func WithParticipant(p contractx.Participant) Option {
	return func(o *Orchestrator) { o.participant = p }
}

// WithCloser attaches the session terminator scheduled by EndConversation.
func WithCloser(c contractx.SessionCloser) Option {
	return func(o *Orchestrator) { o.closer = c }
}

func New(
	gateway contractx.Gateway,
	notifier contractx.Notifier,
	engine *slots.Engine,
	session *statex.Session,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if gateway == nil {
		return nil, errors.New("persistence gateway is required")
	}
	if engine == nil {
		return nil, errors.New("slot engine is required")
	}
	if session == nil {
		return nil, errors.New("session is required")
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}

	delay := cfg.ShutdownDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}

	o := &Orchestrator{
		gateway:       gateway,
		notifier:      notifier,
		engine:        engine,
		session:       session,
		shutdownDelay: delay,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *Orchestrator) Session() *statex.Session {
	return o.session
}

/* ------------------------------ identity ------------------------------- */

// GetUserData resolves identity from session state, then participant
// attributes/metadata, then an explicit phone lookup, in that order.
func (o *Orchestrator) GetUserData(ctx context.Context, contactNumber string) (contractx.IdentityData, error) {
	if contact, ok := o.session.Contact(); ok || o.session.Name() != "" {
		return contractx.IdentityData{
			ContactNumber: contact,
			Name:          o.session.Name(),
			Source:        "session",
		}, nil
	}

	resolver := identity.NewResolver(
		identity.AttributesProvider{Participant: o.participant},
		identity.MetadataProvider{Participant: o.participant},
		identity.LookupProvider{Gateway: o.gateway, PhoneInput: contactNumber, RequireUser: true},
	)
	ev, err := resolver.Resolve(ctx)
	if err != nil {
		o.notifyTool(ctx, "get_user_data", "missing", map[string]any{})
		return contractx.IdentityData{}, err
	}

	o.session.FillIdentity(ev.Phone, ev.Name)
	o.ensureUser(ctx, ev.Phone, o.session.Name())
	data := contractx.IdentityData{
		ContactNumber: ev.Phone,
		Name:          o.session.Name(),
		Source:        ev.Source,
	}
	o.notifyTool(ctx, "get_user_data", "found", map[string]any{
		"contact_number": data.ContactNumber,
		"name":           data.Name,
	})
	return data, nil
}

// Identify establishes identity from an explicit phone number. Unlike the
// opportunistic paths, this overwrites an already-populated contact.
func (o *Orchestrator) Identify(ctx context.Context, contactNumber, name string) (contractx.IdentityData, error) {
	normalized, err := normalize.Phone(contactNumber)
	if err != nil {
		return contractx.IdentityData{}, err
	}
	o.session.SetIdentity(normalized, name)
	o.ensureUser(ctx, normalized, o.session.Name())

	data := contractx.IdentityData{
		ContactNumber: normalized,
		Name:          o.session.Name(),
		Source:        "explicit",
	}
	o.notifyTool(ctx, "identify_user", "identified", map[string]any{
		"contact_number": data.ContactNumber,
		"name":           data.Name,
	})
	return data, nil
}

// resolveContact is the pre-flight identity check shared by the booking
// operations: explicit argument first, then session state. An explicit
// phone also fills the session, so later calls can omit it.
func (o *Orchestrator) resolveContact(explicit string) (string, error) {
	if explicit != "" {
		contact, err := normalize.Phone(explicit)
		if err != nil {
			return "", err
		}
		o.session.FillIdentity(contact, "")
		return contact, nil
	}
	if contact, ok := o.session.Contact(); ok {
		return contact, nil
	}
	return "", contractx.ErrIdentityRequired
}

/* ------------------------------- slots --------------------------------- */

// FetchSlots lists available coordinates for the preferred date, or the
// default range when none is given.
func (o *Orchestrator) FetchSlots(ctx context.Context, preferredDate string) ([]contractx.Slot, error) {
	var dates []string
	if preferredDate != "" {
		date, err := normalize.Date(preferredDate)
		if err != nil {
			return nil, err
		}
		dates = []string{date}
	} else {
		dates = o.engine.DefaultDates()
	}

	available, err := o.engine.Available(ctx, dates)
	if err != nil {
		return nil, err
	}

	o.notifyTool(ctx, "fetch_slots", "listed", map[string]any{
		"dates":           dates,
		"available_slots": available,
	})
	return available, nil
}

/* ------------------------------ booking -------------------------------- */

// Book places a new appointment at the coordinate. A taken coordinate is
// an expected outcome, reported as a conflict result, not an error. The
// pre-flight check avoids a doomed round trip in the common case; the
// gateway's uniqueness guarantee settles races.
func (o *Orchestrator) Book(ctx context.Context, dateValue, timeValue, contactNumber, name, notes string) (contractx.BookResult, error) {
	contact, err := o.resolveContact(contactNumber)
	if err != nil {
		return contractx.BookResult{}, err
	}
	slot, err := normalize.Slot(dateValue, timeValue)
	if err != nil {
		return contractx.BookResult{}, err
	}

	if name != "" {
		o.session.SetIdentity("", name)
	}
	o.ensureUser(ctx, contact, o.session.Name())

	if _, err := o.gateway.ActiveAppointmentAt(ctx, slot, 0); err == nil {
		return o.bookConflict(ctx, slot), nil
	} else if !errors.Is(err, contractx.ErrNotFound) {
		return contractx.BookResult{}, err
	}

	appt := &contractx.Appointment{
		ContactNumber: contact,
		Name:          o.session.Name(),
		SlotDate:      slot.Date,
		SlotTime:      slot.Time,
		Status:        contractx.StatusBooked,
		Notes:         notes,
		CreatedAt:     o.now().UTC(),
	}
	if err := o.gateway.InsertAppointment(ctx, appt); err != nil {
		if errors.Is(err, contractx.ErrSlotTaken) {
			// Lost the race; same user-facing outcome as the pre-flight hit.
			return o.bookConflict(ctx, slot), nil
		}
		return contractx.BookResult{}, err
	}

	o.session.AppendBookedSlot(slot)
	if notes != "" {
		o.session.AppendPreference(notes)
	}

	o.notifyTool(ctx, "book_appointment", "booked", map[string]any{
		"contact_number": appt.ContactNumber,
		"name":           appt.Name,
		"slot_date":      appt.SlotDate,
		"slot_time":      appt.SlotTime,
		"status":         appt.Status,
		"notes":          appt.Notes,
		"created_at":     appt.CreatedAt.Format(time.RFC3339),
	})

	display := o.session.Name()
	if display == "" {
		display = "there"
	}
	return contractx.BookResult{
		Outcome:     contractx.OutcomeBooked,
		Slot:        slot,
		Appointment: appt,
		Message:     fmt.Sprintf("All set, %s. Your appointment is booked for %s.", display, slot),
	}, nil
}

func (o *Orchestrator) bookConflict(ctx context.Context, slot contractx.Slot) contractx.BookResult {
	o.notifyTool(ctx, "book_appointment", "conflict", map[string]any{
		"slot_date": slot.Date,
		"slot_time": slot.Time,
	})
	return contractx.BookResult{
		Outcome: contractx.OutcomeConflict,
		Slot:    slot,
		Message: fmt.Sprintf("That slot on %s is already booked. Please choose another time.", slot),
	}
}

// Modify re-targets the contact's appointment at the old coordinate to a
// new one. Identical coordinates are a no-op reported as such.
func (o *Orchestrator) Modify(ctx context.Context, oldDate, oldTime, newDate, newTime, contactNumber string) (contractx.ModifyResult, error) {
	contact, err := o.resolveContact(contactNumber)
	if err != nil {
		return contractx.ModifyResult{}, err
	}
	oldSlot, err := normalize.Slot(oldDate, oldTime)
	if err != nil {
		return contractx.ModifyResult{}, err
	}
	newSlot, err := normalize.Slot(newDate, newTime)
	if err != nil {
		return contractx.ModifyResult{}, err
	}

	if oldSlot == newSlot {
		return contractx.ModifyResult{
			Outcome: contractx.OutcomeNoChange,
			Old:     oldSlot,
			New:     newSlot,
			Message: "That appointment is already scheduled for the requested time.",
		}, nil
	}

	existing, err := o.gateway.AppointmentFor(ctx, contact, oldSlot)
	if errors.Is(err, contractx.ErrNotFound) {
		o.notifyTool(ctx, "modify_appointment", "not_found", map[string]any{
			"slot_date": oldSlot.Date,
			"slot_time": oldSlot.Time,
		})
		return contractx.ModifyResult{
			Outcome: contractx.OutcomeNotFound,
			Old:     oldSlot,
			New:     newSlot,
			Message: "I could not find that appointment to modify.",
		}, nil
	}
	if err != nil {
		return contractx.ModifyResult{}, err
	}

	conflictResult := contractx.ModifyResult{
		Outcome: contractx.OutcomeConflict,
		Old:     oldSlot,
		New:     newSlot,
		Message: fmt.Sprintf("That new slot on %s is already booked. Please choose a different time.", newSlot),
	}
	if _, err := o.gateway.ActiveAppointmentAt(ctx, newSlot, existing.ID); err == nil {
		o.notifyTool(ctx, "modify_appointment", "conflict", map[string]any{
			"slot_date": newSlot.Date,
			"slot_time": newSlot.Time,
		})
		return conflictResult, nil
	} else if !errors.Is(err, contractx.ErrNotFound) {
		return contractx.ModifyResult{}, err
	}

	if err := o.gateway.RescheduleAppointment(ctx, existing.ID, newSlot); err != nil {
		if errors.Is(err, contractx.ErrSlotTaken) {
			o.notifyTool(ctx, "modify_appointment", "conflict", map[string]any{
				"slot_date": newSlot.Date,
				"slot_time": newSlot.Time,
			})
			return conflictResult, nil
		}
		return contractx.ModifyResult{}, err
	}

	o.notifyTool(ctx, "modify_appointment", "modified", map[string]any{
		"old_date": oldSlot.Date,
		"old_time": oldSlot.Time,
		"new_date": newSlot.Date,
		"new_time": newSlot.Time,
	})
	return contractx.ModifyResult{
		Outcome: contractx.OutcomeModified,
		Old:     oldSlot,
		New:     newSlot,
		Message: fmt.Sprintf("Your appointment has been moved to %s.", newSlot),
	}, nil
}

// Cancel marks the contact's appointment at the coordinate cancelled. The
// lookup does not filter by status, so cancelling an already-cancelled row
// succeeds silently.
func (o *Orchestrator) Cancel(ctx context.Context, dateValue, timeValue, contactNumber, reason string) (contractx.CancelResult, error) {
	contact, err := o.resolveContact(contactNumber)
	if err != nil {
		return contractx.CancelResult{}, err
	}
	slot, err := normalize.Slot(dateValue, timeValue)
	if err != nil {
		return contractx.CancelResult{}, err
	}

	existing, err := o.gateway.AppointmentFor(ctx, contact, slot)
	if errors.Is(err, contractx.ErrNotFound) {
		o.notifyTool(ctx, "cancel_appointment", "not_found", map[string]any{
			"slot_date": slot.Date,
			"slot_time": slot.Time,
		})
		return contractx.CancelResult{
			Outcome: contractx.OutcomeNotFound,
			Slot:    slot,
			Message: "I could not find that appointment to cancel.",
		}, nil
	}
	if err != nil {
		return contractx.CancelResult{}, err
	}

	if err := o.gateway.CancelAppointment(ctx, existing.ID, reason); err != nil {
		return contractx.CancelResult{}, err
	}

	o.notifyTool(ctx, "cancel_appointment", "cancelled", map[string]any{
		"slot_date": slot.Date,
		"slot_time": slot.Time,
		"reason":    reason,
	})
	return contractx.CancelResult{
		Outcome: contractx.OutcomeCancelled,
		Slot:    slot,
		Message: fmt.Sprintf("Your appointment on %s is cancelled.", slot),
	}, nil
}

// Retrieve returns the contact's appointment history, date-major
// ascending. No rows is an empty sequence, never an error.
func (o *Orchestrator) Retrieve(ctx context.Context, contactNumber string) ([]contractx.Appointment, error) {
	contact, err := o.resolveContact(contactNumber)
	if err != nil {
		return nil, err
	}

	appointments, err := o.gateway.AppointmentsFor(ctx, contact)
	if err != nil {
		return nil, err
	}

	o.notifyTool(ctx, "retrieve_appointments", "listed", map[string]any{
		"count":        len(appointments),
		"appointments": appointments,
	})
	return appointments, nil
}

/* ----------------------------- conversation ---------------------------- */

// EndConversation persists the close-out summary and schedules session
// teardown after the grace delay. Identity is optional here: ending a call
// must never get stuck for lack of a phone number.
func (o *Orchestrator) EndConversation(ctx context.Context, summary string, preferences, bookedSlots []string, contactNumber string) (contractx.EndResult, error) {
	contact, err := o.resolveContact(contactNumber)
	if err != nil {
		if !errors.Is(err, contractx.ErrIdentityRequired) && !errors.Is(err, contractx.ErrValidation) {
			return contractx.EndResult{}, err
		}
		log.Warn().Str("session", o.session.ID()).Msg("ending conversation without contact number")
		contact = "unknown"
	}

	snapshot := o.session.Snapshot()
	if len(bookedSlots) == 0 && len(snapshot.BookedSlots) > 0 {
		bookedSlots = make([]string, 0, len(snapshot.BookedSlots))
		for _, slot := range snapshot.BookedSlots {
			bookedSlots = append(bookedSlots, slot.String())
		}
	}
	if len(preferences) == 0 && len(snapshot.Preferences) > 0 {
		preferences = snapshot.Preferences
	}

	createdAt := o.now().UTC()
	o.notify(ctx, contractx.CallSummaryEvent{
		Type:          contractx.EventTypeCallSummary,
		Summary:       summary,
		Preferences:   preferences,
		BookedSlots:   bookedSlots,
		ContactNumber: contact,
		CreatedAt:     createdAt.Format(time.RFC3339),
	})
	o.notifyTool(ctx, "end_conversation", "summary_sent", map[string]any{
		"contact_number": contact,
	})

	if err := o.gateway.InsertSummary(ctx, &contractx.ConversationSummary{
		ContactNumber: contact,
		Summary:       summary,
		Preferences:   preferences,
		BookedSlots:   bookedSlots,
		CreatedAt:     createdAt,
	}); err != nil {
		return contractx.EndResult{}, err
	}

	o.scheduleShutdown()

	return contractx.EndResult{
		ContactNumber: contact,
		Message:       "Thanks for your time. I have saved a summary and will end the call now.",
	}, nil
}

// scheduleShutdown fires the session closer after the grace delay. The
// timer is detached: nothing awaits it and nothing cancels it, even if the
// caller keeps talking.
func (o *Orchestrator) scheduleShutdown() {
	if o.closer == nil {
		return
	}
	closer := o.closer
	delay := o.shutdownDelay
	log.Info().Str("session", o.session.ID()).Dur("delay", delay).Msg("session shutdown scheduled")
	time.AfterFunc(delay, closer.Shutdown)
}

/* ---------------------------- side effects ----------------------------- */

// ensureUser is a secondary effect: its failure must never block the
// primary operation, so it is logged and swallowed.
func (o *Orchestrator) ensureUser(ctx context.Context, contact, name string) {
	if err := o.gateway.EnsureUser(ctx, contact, name); err != nil {
		log.Error().Err(err).Msg("ensure user failed, continuing")
	}
}

func (o *Orchestrator) notifyTool(ctx context.Context, tool, status string, data map[string]any) {
	o.notify(ctx, contractx.ToolEvent{
		Type:   contractx.EventTypeToolCall,
		Tool:   tool,
		Status: status,
		Data:   data,
		TS:     o.now().UTC().Format(time.RFC3339),
	})
}

// notify is fire-and-forget: a booking that succeeded in the store is
// never reported as failed because the client could not be reached.
func (o *Orchestrator) notify(ctx context.Context, payload any) {
	if err := o.notifier.Notify(ctx, payload); err != nil {
		log.Error().Err(err).Msg("notification delivery failed")
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, any) error { return nil }
