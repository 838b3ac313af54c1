package domain

import (
	"errors"
	"testing"
)

func TestInclusiveDays(t *testing.T) {
	cases := []struct {
		start string
		end   string
		want  int
	}{
		{"2026-01-15", "2026-01-17", 3},
		{"2026-01-15", "2026-01-15", 1},
		{"2026-01-31", "2026-02-02", 3},
		{"2026-01-17", "2026-01-15", 0},
		{"not-a-date", "2026-01-15", 0},
		{"2026-01-15", "someday", 0},
	}

	for _, tc := range cases {
		if got := InclusiveDays(tc.start, tc.end); got != tc.want {
			t.Errorf("InclusiveDays(%q, %q) = %d, want %d", tc.start, tc.end, got, tc.want)
		}
	}
}

func TestEndDateFor(t *testing.T) {
	end, err := EndDateFor("2026-01-15", 3)
	if err != nil {
		t.Fatalf("EndDateFor failed: %v", err)
	}
	if end != "2026-01-17" {
		t.Errorf("Expected 2026-01-17, got %s", end)
	}

	end, err = EndDateFor("2026-01-15", 1)
	if err != nil {
		t.Fatalf("EndDateFor failed: %v", err)
	}
	if end != "2026-01-15" {
		t.Errorf("Single day leave should end on its start date, got %s", end)
	}

	if _, err := EndDateFor("bad", 3); err == nil {
		t.Errorf("Expected error for malformed start date")
	}
}

func TestParseLeaveType(t *testing.T) {
	lt, ok := ParseLeaveType("Annual")
	if !ok || lt != LeaveAnnual {
		t.Errorf("ParseLeaveType(Annual) = %v, %v", lt, ok)
	}

	if _, ok := ParseLeaveType("annual"); ok {
		t.Errorf("Leave types are case sensitive")
	}
	if _, ok := ParseLeaveType("Sabbatical"); ok {
		t.Errorf("Unknown type should not parse")
	}
}

func TestExternalServiceErrorUnwraps(t *testing.T) {
	inner := errors.New("connection refused")
	err := &ExternalServiceError{Service: "leave tracker", Err: inner}

	if !errors.Is(err, inner) {
		t.Errorf("Expected wrapped error to be reachable via errors.Is")
	}
}
