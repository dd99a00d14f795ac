/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package reservation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeNode implements Node with a fixed executor count.
type fakeNode int

func (n fakeNode) ExecutorCount() int { return int(n) }

func timeUTC(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func mustParse(t *testing.T, text string) *Schedule {
	t.Helper()
	s, err := Parse(text)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	return s
}

func sizeAt(t *testing.T, s *Schedule, node Node, at time.Time) int {
	t.Helper()
	n, err := s.SizeOfReservation(node, at)
	if err != nil {
		t.Fatalf("size at %v: %v", at, err)
	}
	return n
}

func nextChangeAt(t *testing.T, s *Schedule, at time.Time) time.Time {
	t.Helper()
	next, err := s.TimeOfNextChange(at)
	if err != nil {
		t.Fatalf("next change at %v: %v", at, err)
	}
	return next
}

func TestWeekdayMorningReservation(t *testing.T) {
	// Reserve 2 slots every weekday from 09:00 for 8 hours.
	s := mustParse(t, "2:0 9 * * 1-5:480")
	node := fakeNode(8)

	// 2024-03-20 is a Wednesday.
	at := timeUTC(2024, 3, 20, 10, 0)
	if got := sizeAt(t, s, node, at); got != 2 {
		t.Errorf("inside window: expected 2, got %d", got)
	}
	if got := sizeAt(t, s, node, timeUTC(2024, 3, 20, 17, 1)); got != 0 {
		t.Errorf("after window: expected 0, got %d", got)
	}

	if next := nextChangeAt(t, s, at); !next.Equal(timeUTC(2024, 3, 20, 17, 0)) {
		t.Errorf("next change at 10:00: expected same-day 17:00, got %v", next)
	}
	if next := nextChangeAt(t, s, timeUTC(2024, 3, 20, 17, 1)); !next.Equal(timeUTC(2024, 3, 21, 9, 0)) {
		t.Errorf("next change at 17:01: expected next weekday 09:00, got %v", next)
	}
	// Friday evening rolls over the weekend.
	if next := nextChangeAt(t, s, timeUTC(2024, 3, 22, 18, 0)); !next.Equal(timeUTC(2024, 3, 25, 9, 0)) {
		t.Errorf("next change Friday evening: expected Monday 09:00, got %v", next)
	}
}

func TestReserveAllExecutors(t *testing.T) {
	// Reserve every slot at midnight for an hour.
	s := mustParse(t, "*:0 0 * * *:60")
	node := fakeNode(4)

	if got := sizeAt(t, s, node, timeUTC(2024, 3, 20, 0, 30)); got != 4 {
		t.Errorf("expected all 4 executors at 00:30, got %d", got)
	}
	if got := sizeAt(t, s, node, timeUTC(2024, 3, 20, 1, 30)); got != 0 {
		t.Errorf("expected 0 at 01:30, got %d", got)
	}
}

func TestOverlappingEntriesSum(t *testing.T) {
	s := mustParse(t, "2:0 9 * * 1-5:480\n3:0 12 * * *:60")
	node := fakeNode(8)

	// Wednesday 12:30: both windows active; contributions add, not max.
	if got := sizeAt(t, s, node, timeUTC(2024, 3, 20, 12, 30)); got != 5 {
		t.Errorf("expected 5 (2+3), got %d", got)
	}
}

func TestSumIsNotCappedByExecutorCount(t *testing.T) {
	s := mustParse(t, "4:0 9 * * *:60\n4:0 9 * * *:60")
	node := fakeNode(2)

	if got := sizeAt(t, s, node, timeUTC(2024, 3, 20, 9, 30)); got != 8 {
		t.Errorf("over-reservation must not be capped: expected 8, got %d", got)
	}
}

func TestEmptySchedule(t *testing.T) {
	for _, text := range []string{"", "\n\n", "# all comments\n\n  # indented too\n"} {
		s := mustParse(t, text)
		if got := sizeAt(t, s, fakeNode(4), timeUTC(2024, 3, 20, 12, 0)); got != 0 {
			t.Errorf("empty schedule %q: expected size 0, got %d", text, got)
		}
		if next := nextChangeAt(t, s, timeUTC(2024, 3, 20, 12, 0)); !next.Equal(Never) {
			t.Errorf("empty schedule %q: expected Never, got %v", text, next)
		}
	}
}

func TestParseCRLFAndWhitespace(t *testing.T) {
	s := mustParse(t, " 2 : 0 9 * * 1-5 : 480 \r\n# comment\r\n")
	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Size() != 2 || entries[0].Duration() != 480*time.Minute {
		t.Errorf("unexpected entry: size=%v duration=%v", entries[0].Size(), entries[0].Duration())
	}
}

func TestParseErrors(t *testing.T) {
	data := []struct {
		text       string
		line       int
		reasonPart string
	}{
		{"abc:0 0 * * *:60", 1, `invalid reservation size "abc"`},
		{"-1:0 0 * * *:60", 1, "invalid reservation size"},
		{"2:0 0 * * *", 1, "expected 3 fields separated by ':', found 2"},
		{"2:0 0 * * *:60:extra", 1, "found 4"},
		{"2:61 0 * * *:60", 1, "invalid recurrence pattern"},
		{"2:0 0 * * *:ten", 1, `invalid duration "ten"`},
		{"2:0 0 * * *:-5", 1, "invalid duration"},
		{"# fine\n1:0 0 * * *:60\nbogus line", 3, "expected 3 fields"},
	}
	for _, d := range data {
		_, err := Parse(d.text)
		if err == nil {
			t.Errorf("expected error for %q", d.text)
			continue
		}
		var malformed *MalformedRuleError
		if !errors.As(err, &malformed) {
			t.Errorf("expected *MalformedRuleError for %q, got %T", d.text, err)
			continue
		}
		if malformed.Line != d.line {
			t.Errorf("%q: expected line %d, got %d", d.text, d.line, malformed.Line)
		}
		if !strings.Contains(malformed.Reason, d.reasonPart) {
			t.Errorf("%q: reason %q does not mention %q", d.text, malformed.Reason, d.reasonPart)
		}
	}
}

func TestParseIsAllOrNothing(t *testing.T) {
	if s, err := Parse("1:0 0 * * *:60\nbroken"); err == nil || s != nil {
		t.Errorf("expected nil schedule and error, got %v, %v", s, err)
	}
}

func TestCronDiagnosticPreserved(t *testing.T) {
	_, err := Parse("2:61 0 * * *:60")
	if err == nil {
		t.Fatal("expected error")
	}
	var malformed *MalformedRuleError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *MalformedRuleError, got %T", err)
	}
	if malformed.Err == nil {
		t.Fatal("underlying cron error should be preserved")
	}
	if !strings.Contains(malformed.Reason, malformed.Err.Error()) {
		t.Errorf("reason %q should include the cron diagnostic %q", malformed.Reason, malformed.Err)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("2:0 9 * * 1-5:480\n*:@daily:60\n"); err != nil {
		t.Errorf("valid text rejected: %v", err)
	}
	if err := Validate("abc:0 0 * * *:60"); err == nil {
		t.Error("invalid text accepted")
	}
}

func TestReparseIdempotence(t *testing.T) {
	text := "2:0 9 * * 1-5:480\n*:0 0 * * *:60\n"
	a := mustParse(t, text)
	b := mustParse(t, text)
	node := fakeNode(6)

	for _, at := range []time.Time{
		timeUTC(2024, 3, 20, 0, 30),
		timeUTC(2024, 3, 20, 10, 0),
		timeUTC(2024, 3, 23, 12, 0),
	} {
		if sizeAt(t, a, node, at) != sizeAt(t, b, node, at) {
			t.Errorf("size differs between identical schedules at %v", at)
		}
		if !nextChangeAt(t, a, at).Equal(nextChangeAt(t, b, at)) {
			t.Errorf("next change differs between identical schedules at %v", at)
		}
	}
}

func TestAddingEntryIsMonotonic(t *testing.T) {
	base := mustParse(t, "2:0 9 * * 1-5:480")
	extended := mustParse(t, "2:0 9 * * 1-5:480\n1:30 13 * * *:15")
	node := fakeNode(8)

	for _, at := range []time.Time{
		timeUTC(2024, 3, 20, 8, 0),
		timeUTC(2024, 3, 20, 10, 0),
		timeUTC(2024, 3, 20, 13, 40),
		timeUTC(2024, 3, 23, 2, 0),
	} {
		if sizeAt(t, extended, node, at) < sizeAt(t, base, node, at) {
			t.Errorf("adding an entry decreased the reservation at %v", at)
		}
		if nextChangeAt(t, extended, at).After(nextChangeAt(t, base, at)) {
			t.Errorf("adding an entry pushed the next change later at %v", at)
		}
	}
}

func TestNextChangeIsNotABusyLoop(t *testing.T) {
	s := mustParse(t, "2:0 9 * * 1-5:480")
	node := fakeNode(8)

	at := timeUTC(2024, 3, 20, 10, 0)
	next := nextChangeAt(t, s, at)
	before := sizeAt(t, s, node, at)
	after := sizeAt(t, s, node, next.Add(time.Minute))
	if before == after {
		t.Errorf("size did not change across the reported next-change instant %v", next)
	}
}

func TestQueryAtWindowStartReturnsStart(t *testing.T) {
	// Ceil is inclusive, so querying exactly at an occurrence reports that
	// same instant; callers advance before re-querying.
	s := mustParse(t, "2:0 9 * * 1-5:480")
	at := timeUTC(2024, 3, 20, 9, 0)
	if next := nextChangeAt(t, s, at); !next.Equal(at) {
		t.Errorf("expected next change equal to the window start %v, got %v", at, next)
	}
}

func TestWindowLongerThanRecurrence(t *testing.T) {
	// 90-minute windows opening every hour: inside a window the next change
	// is the next occurrence, not the window end.
	s := mustParse(t, "1:0 * * * *:90")
	node := fakeNode(4)

	if got := sizeAt(t, s, node, timeUTC(2024, 3, 20, 12, 30)); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if next := nextChangeAt(t, s, timeUTC(2024, 3, 20, 12, 30)); !next.Equal(timeUTC(2024, 3, 20, 13, 0)) {
		t.Errorf("expected next occurrence 13:00, got %v", next)
	}
}

func TestZeroDurationEntryNeverActive(t *testing.T) {
	s := mustParse(t, "3:0 9 * * *:0")
	if got := sizeAt(t, s, fakeNode(4), timeUTC(2024, 3, 20, 9, 0)); got != 0 {
		t.Errorf("zero-duration window must be empty, got %d", got)
	}
}

func TestQueryErrorOnUnmatchablePattern(t *testing.T) {
	// "0 0 30 2 *" parses but never matches; queries surface an error rather
	// than hanging or returning a silent zero.
	s := mustParse(t, "1:0 0 30 2 *:60")
	if _, err := s.SizeOfReservation(fakeNode(1), timeUTC(2024, 3, 20, 9, 0)); err == nil {
		t.Error("expected a query-time error for an unmatchable pattern")
	}
	if _, err := s.TimeOfNextChange(timeUTC(2024, 3, 20, 9, 0)); err == nil {
		t.Error("expected a query-time error for an unmatchable pattern")
	}
}

func TestSizeBounds(t *testing.T) {
	s := mustParse(t, "*:0 9 * * *:60")
	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	node := fakeNode(7)
	for hour := 0; hour < 24; hour++ {
		at := timeUTC(2024, 3, 20, hour, 30)
		got, err := entries[0].SizeOfReservation(node, at)
		if err != nil {
			t.Fatalf("size at %v: %v", at, err)
		}
		if got < 0 || got > entries[0].Size().Resolve(node) {
			t.Errorf("size %d out of bounds at %v", got, at)
		}
	}
}
