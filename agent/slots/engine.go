// Package slots computes the candidate slot grid for a date range and
// subtracts coordinates already held by non-cancelled appointments.
package slots

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/frontdeskai/frontdesk/agent/contract"
	"github.com/frontdeskai/frontdesk/agent/normalize"
)

type Config struct {
	// DaysAhead sizes the default range: today plus the next N-1 days.
	DaysAhead int `envconfig:"DAYS_AHEAD" split_words:"true" default:"7"`
	// TimeGrid is the fixed daily grid of bookable times, 24-hour HH:MM.
	TimeGrid []string `envconfig:"TIME_GRID" split_words:"true" default:"10:00,14:00,16:00"`
}

type Engine struct {
	gateway   contractx.Gateway
	grid      []string
	daysAhead int
	now       func() time.Time
}

type Option func(*Engine)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

var defaultTimeGrid = []string{"10:00", "14:00", "16:00"}

func NewEngine(gateway contractx.Gateway, cfg Config, opts ...Option) *Engine {
	// Canonicalize grid entries so lexicographic ordering is time-of-day
	// ordering; unparseable entries are dropped rather than trusted.
	grid := make([]string, 0, len(cfg.TimeGrid))
	for _, entry := range cfg.TimeGrid {
		canonical, err := normalize.Time(entry)
		if err != nil {
			log.Warn().Str("entry", entry).Msg("dropping unparseable time grid entry")
			continue
		}
		grid = append(grid, canonical)
	}
	if len(grid) == 0 {
		grid = append(grid, defaultTimeGrid...)
	}
	sort.Strings(grid)
	daysAhead := cfg.DaysAhead
	if daysAhead <= 0 {
		daysAhead = 7
	}
	e := &Engine{
		gateway:   gateway,
		grid:      grid,
		daysAhead: daysAhead,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultDates is today plus the next DaysAhead-1 calendar days.
func (e *Engine) DefaultDates() []string {
	today := e.now()
	dates := make([]string, 0, e.daysAhead)
	for offset := 0; offset < e.daysAhead; offset++ {
		dates = append(dates, today.AddDate(0, 0, offset).Format("2006-01-02"))
	}
	return dates
}

// Candidates is the cartesian product of dates and the daily grid, in
// date-major order. Pure function of configuration.
func (e *Engine) Candidates(dates []string) []contractx.Slot {
	ordered := append([]string(nil), dates...)
	sort.Strings(ordered)
	out := make([]contractx.Slot, 0, len(ordered)*len(e.grid))
	for _, date := range ordered {
		for _, t := range e.grid {
			out = append(out, contractx.Slot{Date: date, Time: t})
		}
	}
	return out
}

// Booked returns the occupied coordinates within the inclusive range of
// dates. An empty range short-circuits to the empty set without querying.
func (e *Engine) Booked(ctx context.Context, dates []string) (map[contractx.Slot]struct{}, error) {
	if len(dates) == 0 {
		return map[contractx.Slot]struct{}{}, nil
	}
	start, end := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d < start {
			start = d
		}
		if d > end {
			end = d
		}
	}
	slots, err := e.gateway.BookedSlotsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	booked := make(map[contractx.Slot]struct{}, len(slots))
	for _, s := range slots {
		booked[s] = struct{}{}
	}
	return booked, nil
}

// Available is Candidates minus Booked, kept in candidate order for
// deterministic presentation.
func (e *Engine) Available(ctx context.Context, dates []string) ([]contractx.Slot, error) {
	if len(dates) == 0 {
		dates = e.DefaultDates()
	}
	candidates := e.Candidates(dates)
	booked, err := e.Booked(ctx, dates)
	if err != nil {
		return nil, err
	}
	available := make([]contractx.Slot, 0, len(candidates))
	for _, slot := range candidates {
		if _, taken := booked[slot]; !taken {
			available = append(available, slot)
		}
	}
	return available, nil
}
