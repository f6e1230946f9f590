// Package gateway implements the persistence contract over Postgres.
package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/frontdeskai/frontdesk/agent/contract"
)

const uniqueViolation = "23505"

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID            int64     `bun:"id,pk,autoincrement"`
	ContactNumber string    `bun:"contact_number"`
	Name          string    `bun:"name,nullzero"`
	CreatedAt     time.Time `bun:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at"`
}

type appointmentRow struct {
	bun.BaseModel `bun:"table:appointments"`

	ID            int64     `bun:"id,pk,autoincrement"`
	ContactNumber string    `bun:"contact_number"`
	Name          string    `bun:"name,nullzero"`
	SlotDate      string    `bun:"slot_date"`
	SlotTime      string    `bun:"slot_time"`
	Status        string    `bun:"status"`
	Notes         string    `bun:"notes,nullzero"`
	CreatedAt     time.Time `bun:"created_at"`
}

type summaryRow struct {
	bun.BaseModel `bun:"table:conversation_summaries"`

	ID            int64     `bun:"id,pk,autoincrement"`
	ContactNumber string    `bun:"contact_number"`
	Summary       string    `bun:"summary"`
	Preferences   []string  `bun:"preferences,array"`
	BookedSlots   []string  `bun:"booked_slots,array"`
	CreatedAt     time.Time `bun:"created_at"`
}

// Postgres is the bun-backed Gateway. The orchestrator is its only writer.
type Postgres struct {
	db  *bun.DB
	now func() time.Time
}

var _ contractx.Gateway = (*Postgres)(nil)

func NewPostgres(db *bun.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

func (g *Postgres) UserByPhone(ctx context.Context, contactNumber string) (*contractx.User, error) {
	row := new(userRow)
	err := g.db.NewSelect().
		Model(row).
		Where("contact_number = ?", contactNumber).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contractx.ErrNotFound
	}
	if err != nil {
		return nil, persistence("select user", err)
	}
	return &contractx.User{
		ContactNumber: row.ContactNumber,
		Name:          row.Name,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

func (g *Postgres) EnsureUser(ctx context.Context, contactNumber, name string) error {
	now := g.now().UTC()
	row := &userRow{
		ContactNumber: contactNumber,
		Name:          name,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// Upsert keeps this idempotent under repeated identification; an empty
	// incoming name never clobbers a stored one.
	_, err := g.db.NewInsert().
		Model(row).
		On("CONFLICT (contact_number) DO UPDATE").
		Set("name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name)").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return persistence("ensure user", err)
	}
	return nil
}

func (g *Postgres) BookedSlotsBetween(ctx context.Context, startDate, endDate string) ([]contractx.Slot, error) {
	var rows []appointmentRow
	err := g.db.NewSelect().
		Model(&rows).
		Column("slot_date", "slot_time").
		Where("slot_date >= ?", startDate).
		Where("slot_date <= ?", endDate).
		Where("status <> ?", string(contractx.StatusCancelled)).
		Scan(ctx)
	if err != nil {
		return nil, persistence("select booked slots", err)
	}
	slots := make([]contractx.Slot, 0, len(rows))
	for _, row := range rows {
		slots = append(slots, contractx.Slot{Date: row.SlotDate, Time: row.SlotTime})
	}
	return slots, nil
}

func (g *Postgres) ActiveAppointmentAt(ctx context.Context, slot contractx.Slot, excludeID int64) (*contractx.Appointment, error) {
	row := new(appointmentRow)
	q := g.db.NewSelect().
		Model(row).
		Where("slot_date = ?", slot.Date).
		Where("slot_time = ?", slot.Time).
		Where("status <> ?", string(contractx.StatusCancelled))
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contractx.ErrNotFound
	}
	if err != nil {
		return nil, persistence("select active appointment", err)
	}
	return row.toAppointment(), nil
}

func (g *Postgres) AppointmentFor(ctx context.Context, contactNumber string, slot contractx.Slot) (*contractx.Appointment, error) {
	row := new(appointmentRow)
	err := g.db.NewSelect().
		Model(row).
		Where("contact_number = ?", contactNumber).
		Where("slot_date = ?", slot.Date).
		Where("slot_time = ?", slot.Time).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contractx.ErrNotFound
	}
	if err != nil {
		return nil, persistence("select appointment", err)
	}
	return row.toAppointment(), nil
}

func (g *Postgres) AppointmentsFor(ctx context.Context, contactNumber string) ([]contractx.Appointment, error) {
	var rows []appointmentRow
	err := g.db.NewSelect().
		Model(&rows).
		Where("contact_number = ?", contactNumber).
		Order("slot_date ASC", "slot_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, persistence("select appointments", err)
	}
	out := make([]contractx.Appointment, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toAppointment())
	}
	return out, nil
}

func (g *Postgres) InsertAppointment(ctx context.Context, appt *contractx.Appointment) error {
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = g.now().UTC()
	}
	row := &appointmentRow{
		ContactNumber: appt.ContactNumber,
		Name:          appt.Name,
		SlotDate:      appt.SlotDate,
		SlotTime:      appt.SlotTime,
		Status:        string(appt.Status),
		Notes:         appt.Notes,
		CreatedAt:     appt.CreatedAt,
	}
	_, err := g.db.NewInsert().
		Model(row).
		Returning("id").
		Exec(ctx)
	if isUniqueViolation(err) {
		return contractx.ErrSlotTaken
	}
	if err != nil {
		return persistence("insert appointment", err)
	}
	appt.ID = row.ID
	return nil
}

func (g *Postgres) RescheduleAppointment(ctx context.Context, id int64, to contractx.Slot) error {
	_, err := g.db.NewUpdate().
		Model((*appointmentRow)(nil)).
		Set("slot_date = ?", to.Date).
		Set("slot_time = ?", to.Time).
		Set("status = ?", string(contractx.StatusBooked)).
		Where("id = ?", id).
		Exec(ctx)
	if isUniqueViolation(err) {
		return contractx.ErrSlotTaken
	}
	if err != nil {
		return persistence("reschedule appointment", err)
	}
	return nil
}

func (g *Postgres) CancelAppointment(ctx context.Context, id int64, reason string) error {
	q := g.db.NewUpdate().
		Model((*appointmentRow)(nil)).
		Set("status = ?", string(contractx.StatusCancelled)).
		Where("id = ?", id)
	if reason != "" {
		q = q.Set("notes = ?", reason)
	}
	if _, err := q.Exec(ctx); err != nil {
		return persistence("cancel appointment", err)
	}
	return nil
}

func (g *Postgres) InsertSummary(ctx context.Context, sum *contractx.ConversationSummary) error {
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = g.now().UTC()
	}
	row := &summaryRow{
		ContactNumber: sum.ContactNumber,
		Summary:       sum.Summary,
		Preferences:   emptyIfNil(sum.Preferences),
		BookedSlots:   emptyIfNil(sum.BookedSlots),
		CreatedAt:     sum.CreatedAt,
	}
	if _, err := g.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return persistence("insert summary", err)
	}
	return nil
}

func (r *appointmentRow) toAppointment() *contractx.Appointment {
	return &contractx.Appointment{
		ID:            r.ID,
		ContactNumber: r.ContactNumber,
		Name:          r.Name,
		SlotDate:      r.SlotDate,
		SlotTime:      r.SlotTime,
		Status:        contractx.AppointmentStatus(r.Status),
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
	}
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", contractx.ErrPersistence, op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation
}

func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
