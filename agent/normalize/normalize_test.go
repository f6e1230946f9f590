package normalize

import (
	"errors"
	"testing"

	contractx "github.com/frontdeskai/frontdesk/agent/contract"
)

func TestPhoneStripsFormatting(t *testing.T) {
	t.Parallel()

	got, err := Phone("+1 (555) 123-4567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "15551234567" {
		t.Fatalf("unexpected digits: %s", got)
	}
}

func TestPhoneRejectsTooFewDigits(t *testing.T) {
	t.Parallel()

	_, err := Phone("555-12")
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var vErr *contractx.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "phone" {
		t.Fatalf("expected phone field error, got %v", err)
	}
}

func TestPhoneExactlySevenDigits(t *testing.T) {
	t.Parallel()

	got, err := Phone("555-1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "5551234" {
		t.Fatalf("unexpected digits: %s", got)
	}
}

func TestDateStrictFormat(t *testing.T) {
	t.Parallel()

	got, err := Date("2025-03-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2025-03-10" {
		t.Fatalf("unexpected date: %s", got)
	}

	for _, bad := range []string{"tomorrow", "10/03/2025", "2025-13-01", ""} {
		if _, err := Date(bad); !errors.Is(err, contractx.ErrValidation) {
			t.Fatalf("expected validation error for %q, got %v", bad, err)
		}
	}
}

func TestTimeAcceptsBothFormats(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"14:00":    "14:00",
		"2:00 PM":  "14:00",
		"2:00 pm":  "14:00",
		"12:30 AM": "00:30",
		"09:05":    "09:05",
	}
	for in, want := range cases {
		got, err := Time(in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("Time(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestTimeIdempotent(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"14:00", "2:00 PM", "12:30 AM", "23:59"} {
		once, err := Time(in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", in, err)
		}
		twice, err := Time(once)
		if err != nil {
			t.Fatalf("normalized value %q failed to re-normalize: %v", once, err)
		}
		if once != twice {
			t.Fatalf("Time not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestTimeRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"soonish", "25:00", "2 PM", ""} {
		if _, err := Time(bad); !errors.Is(err, contractx.ErrValidation) {
			t.Fatalf("expected validation error for %q, got %v", bad, err)
		}
	}
}

func TestSlotNormalizesPair(t *testing.T) {
	t.Parallel()

	slot, err := Slot("2025-03-10", "2:00 PM")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slot.Date != "2025-03-10" || slot.Time != "14:00" {
		t.Fatalf("unexpected slot: %+v", slot)
	}
	if slot.String() != "2025-03-10 at 14:00" {
		t.Fatalf("unexpected rendering: %s", slot)
	}
}
