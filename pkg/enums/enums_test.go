package enums

import "testing"

func TestParseShiftType(t *testing.T) {
	for _, raw := range []string{"Morning", "Evening", "Night"} {
		if _, err := ParseShiftType(raw); err != nil {
			t.Fatalf("expected %q to parse: %v", raw, err)
		}
	}
	if _, err := ParseShiftType("morning"); err == nil {
		t.Fatal("shift types are case sensitive")
	}
	if ShiftTypeNight.Order() != 2 || ShiftType("Graveyard").Order() != -1 {
		t.Fatal("unexpected shift order")
	}
}

func TestSwapStatusTerminal(t *testing.T) {
	if SwapStatusPending.IsTerminal() {
		t.Fatal("pending is not terminal")
	}
	if !SwapStatusAccepted.IsTerminal() || !SwapStatusRejected.IsTerminal() {
		t.Fatal("accepted and rejected are terminal")
	}
}

func TestCoverageForCount(t *testing.T) {
	cases := map[int]CoverageStatus{
		0: CoverageUnderstaffed,
		1: CoverageOK,
		2: CoverageOverstaffed,
		7: CoverageOverstaffed,
	}
	for count, want := range cases {
		if got := CoverageForCount(count); got != want {
			t.Fatalf("count %d: expected %s got %s", count, want, got)
		}
	}
}

func TestSeverityForCount(t *testing.T) {
	cases := map[int]ConflictSeverity{
		0: SeverityNone,
		1: SeverityMedium,
		2: SeverityMedium,
		3: SeverityHigh,
		6: SeverityHigh,
	}
	for count, want := range cases {
		if got := SeverityForCount(count); got != want {
			t.Fatalf("count %d: expected %s got %s", count, want, got)
		}
	}
}

func TestUrgencyForScore(t *testing.T) {
	cases := map[int]Urgency{
		100: UrgencyHigh,
		80:  UrgencyHigh,
		79:  UrgencyMedium,
		60:  UrgencyMedium,
		59:  UrgencyLow,
		0:   UrgencyLow,
	}
	for score, want := range cases {
		if got := UrgencyForScore(score); got != want {
			t.Fatalf("score %d: expected %s got %s", score, want, got)
		}
	}
}
