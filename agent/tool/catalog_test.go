package tool

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/frontdeskai/frontdesk/agent/booking"
	contractx "github.com/frontdeskai/frontdesk/agent/contract"
	"github.com/frontdeskai/frontdesk/agent/slots"
	statex "github.com/frontdeskai/frontdesk/agent/state"
)

// memGateway is just enough store for executor-level tests: a single
// appointment list guarded by nothing, since each test drives one
// goroutine.
type memGateway struct {
	appointments []*contractx.Appointment
	summaries    int
	nextID       int64
}

func (g *memGateway) UserByPhone(context.Context, string) (*contractx.User, error) {
	return nil, contractx.ErrNotFound
}

func (g *memGateway) EnsureUser(context.Context, string, string) error { return nil }

func (g *memGateway) BookedSlotsBetween(_ context.Context, start, end string) ([]contractx.Slot, error) {
	var out []contractx.Slot
	for _, a := range g.appointments {
		if a.Status != contractx.StatusCancelled && a.SlotDate >= start && a.SlotDate <= end {
			out = append(out, a.Slot())
		}
	}
	return out, nil
}

func (g *memGateway) ActiveAppointmentAt(_ context.Context, slot contractx.Slot, excludeID int64) (*contractx.Appointment, error) {
	for _, a := range g.appointments {
		if a.Status != contractx.StatusCancelled && a.ID != excludeID && a.Slot() == slot {
			return a, nil
		}
	}
	return nil, contractx.ErrNotFound
}

func (g *memGateway) AppointmentFor(_ context.Context, contact string, slot contractx.Slot) (*contractx.Appointment, error) {
	for i := len(g.appointments) - 1; i >= 0; i-- {
		if g.appointments[i].ContactNumber == contact && g.appointments[i].Slot() == slot {
			return g.appointments[i], nil
		}
	}
	return nil, contractx.ErrNotFound
}

func (g *memGateway) AppointmentsFor(_ context.Context, contact string) ([]contractx.Appointment, error) {
	var out []contractx.Appointment
	for _, a := range g.appointments {
		if a.ContactNumber == contact {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (g *memGateway) InsertAppointment(_ context.Context, appt *contractx.Appointment) error {
	if _, err := g.ActiveAppointmentAt(context.Background(), appt.Slot(), 0); err == nil {
		return contractx.ErrSlotTaken
	}
	g.nextID++
	appt.ID = g.nextID
	g.appointments = append(g.appointments, appt)
	return nil
}

func (g *memGateway) RescheduleAppointment(_ context.Context, id int64, to contractx.Slot) error {
	for _, a := range g.appointments {
		if a.ID == id {
			a.SlotDate, a.SlotTime = to.Date, to.Time
			return nil
		}
	}
	return contractx.ErrNotFound
}

func (g *memGateway) CancelAppointment(_ context.Context, id int64, _ string) error {
	for _, a := range g.appointments {
		if a.ID == id {
			a.Status = contractx.StatusCancelled
			return nil
		}
	}
	return contractx.ErrNotFound
}

func (g *memGateway) InsertSummary(context.Context, *contractx.ConversationSummary) error {
	g.summaries++
	return nil
}

func newExecutor(t *testing.T) (Executor, *memGateway) {
	t.Helper()
	gw := &memGateway{}
	engine := slots.NewEngine(gw, slots.Config{
		DaysAhead: 7,
		TimeGrid:  []string{"10:00", "14:00", "16:00"},
	}, slots.WithClock(func() time.Time {
		return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	}))
	orch, err := booking.New(gw, nil, engine, statex.NewSession("conv-exec"), booking.Config{})
	if err != nil {
		t.Fatalf("building orchestrator: %v", err)
	}
	return NewExecutor(orch), gw
}

func TestCatalogCoversEveryTool(t *testing.T) {
	t.Parallel()

	infos, _ := Build(mustOrchestrator(t))
	want := []string{
		ToolGetUserData, ToolIdentifyUser, ToolFetchSlots,
		ToolBookAppointment, ToolRetrieveAppointments,
		ToolCancelAppointment, ToolModifyAppointment, ToolEndConversation,
	}
	byName := make(map[string]Info, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}
	for _, name := range want {
		info, ok := byName[name]
		if !ok {
			t.Fatalf("tool %s missing from catalog", name)
		}
		if info.Desc == "" {
			t.Fatalf("tool %s has no description", name)
		}
	}
	if len(infos) != len(want) {
		t.Fatalf("catalog lists %d tools, want %d", len(infos), len(want))
	}
}

func mustOrchestrator(t *testing.T) *booking.Orchestrator {
	t.Helper()
	gw := &memGateway{}
	engine := slots.NewEngine(gw, slots.Config{TimeGrid: []string{"10:00"}})
	orch, err := booking.New(gw, nil, engine, statex.NewSession("conv-cat"), booking.Config{})
	if err != nil {
		t.Fatalf("building orchestrator: %v", err)
	}
	return orch
}

func TestExecutorBookAndRetrieve(t *testing.T) {
	t.Parallel()

	exec, gw := newExecutor(t)
	ctx := context.Background()

	result, err := exec(ctx, ToolBookAppointment, map[string]any{
		"date":           "2025-03-10",
		"time":           "14:00",
		"contact_number": "555-123-4567",
		"name":           "Alice",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("unexpected recoverable error: %s", result.Error)
	}
	msg, ok := result.Result.(string)
	if !ok || !strings.Contains(msg, "Alice") {
		t.Fatalf("booking reply must address the caller: %v", result.Result)
	}
	if len(gw.appointments) != 1 {
		t.Fatalf("expected one row, got %d", len(gw.appointments))
	}

	retrieved, err := exec(ctx, ToolRetrieveAppointments, map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, ok := retrieved.Result.([]contractx.Appointment)
	if !ok || len(rows) != 1 {
		t.Fatalf("unexpected retrieval result: %v", retrieved.Result)
	}
}

func TestExecutorRecoverablePrompts(t *testing.T) {
	t.Parallel()

	exec, _ := newExecutor(t)
	ctx := context.Background()

	cases := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{
			name: "bad phone",
			tool: ToolIdentifyUser,
			args: map[string]any{"contact_number": "12", "name": "Al"},
			want: "Ask the user for a valid phone number with country code.",
		},
		{
			name: "bad date",
			tool: ToolBookAppointment,
			args: map[string]any{"date": "tomorrow", "time": "14:00", "contact_number": "5551234567"},
			want: "Ask the user for a date in YYYY-MM-DD format.",
		},
		{
			name: "bad time",
			tool: ToolBookAppointment,
			args: map[string]any{"date": "2025-03-10", "time": "2pm sharp", "contact_number": "5551234567"},
			want: "Ask the user for a time like 14:00 or 2:00 PM.",
		},
		{
			name: "no identity",
			tool: ToolCancelAppointment,
			args: map[string]any{"date": "2025-03-10", "time": "14:00"},
			want: "Ask the user for their phone number to continue.",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result, err := exec(ctx, tc.tool, tc.args)
			if err != nil {
				t.Fatalf("recoverable faults must not surface as errors: %v", err)
			}
			if result.Error != tc.want {
				t.Fatalf("prompt = %q, want %q", result.Error, tc.want)
			}
			if result.Result != nil {
				t.Fatalf("prompt results must carry no payload: %v", result.Result)
			}
		})
	}
}

func TestExecutorFetchSlotsArgs(t *testing.T) {
	t.Parallel()

	exec, _ := newExecutor(t)
	result, err := exec(context.Background(), ToolFetchSlots, map[string]any{"preferred_date": "2025-03-12"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	available, ok := result.Result.([]contractx.Slot)
	if !ok || len(available) != 3 {
		t.Fatalf("expected full daily grid, got %v", result.Result)
	}
}

func TestExecutorEndConversationCoercesList(t *testing.T) {
	t.Parallel()

	exec, gw := newExecutor(t)
	result, err := exec(context.Background(), ToolEndConversation, map[string]any{
		"summary":        "no booking made",
		"preferences":    []any{"prefers afternoons", 42, "call back in spring"},
		"contact_number": "5551234567",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("unexpected recoverable error: %s", result.Error)
	}
	if gw.summaries != 1 {
		t.Fatalf("expected one summary write, got %d", gw.summaries)
	}
}

func TestExecutorUnknownTool(t *testing.T) {
	t.Parallel()

	exec, _ := newExecutor(t)
	if _, err := exec(context.Background(), "transfer_call", nil); err == nil {
		t.Fatal("unknown tool must be an error")
	}
}
