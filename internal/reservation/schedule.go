/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package reservation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/slotsquatter/internal/recurrence"
)

// Never is the sentinel returned by TimeOfNextChange when a schedule has no
// upcoming change (i.e., it has no entries).
var Never = time.Date(9999, time.December, 31, 23, 59, 0, 0, time.UTC)

// Squatter is the capability a reservation source exposes to a host
// scheduler. Any implementation can be registered with the host; Schedule is
// the canonical one.
type Squatter interface {
	SizeOfReservation(node Node, t time.Time) (int, error)
	TimeOfNextChange(t time.Time) (time.Time, error)
}

// MalformedRuleError reports the first syntactic problem found while parsing
// rule text. Line is 1-indexed into the original text, counting blank and
// comment lines.
type MalformedRuleError struct {
	Line   int
	Reason string
	Err    error
}

func (e *MalformedRuleError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *MalformedRuleError) Unwrap() error { return e.Err }

// Schedule is an ordered set of entries parsed from one rule-text document.
// It is immutable; when the source text changes, parse a new Schedule.
type Schedule struct {
	source  string
	entries []Entry
}

// Parse builds a Schedule from rule text. One rule per line, in the form
//
//	<size>:<cron-pattern>:<duration-minutes>
//
// where size is a non-negative integer or "*" for every executor on the node.
// Blank lines and lines starting with "#" are skipped. Parsing is
// all-or-nothing: the first malformed line aborts with a *MalformedRuleError
// and no schedule is produced.
func Parse(text string) (*Schedule, error) {
	var entries []Entry
	for i, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		lineNumber := i + 1
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, ":")
		if len(fields) != 3 {
			return nil, &MalformedRuleError{
				Line:   lineNumber,
				Reason: fmt.Sprintf("expected 3 fields separated by ':', found %d in %q", len(fields), line),
			}
		}
		for j := range fields {
			fields[j] = strings.TrimSpace(fields[j])
		}

		size, err := parseSize(fields[0])
		if err != nil {
			return nil, &MalformedRuleError{
				Line:   lineNumber,
				Reason: fmt.Sprintf("invalid reservation size %q: %v", fields[0], err),
				Err:    err,
			}
		}

		pattern, err := recurrence.Parse(fields[1])
		if err != nil {
			// The cron library's diagnostic names the offending field;
			// operators rely on it to fix their schedule.
			return nil, &MalformedRuleError{
				Line:   lineNumber,
				Reason: fmt.Sprintf("invalid recurrence pattern %q: %v", fields[1], err),
				Err:    err,
			}
		}

		minutes, err := parseNonNegativeInt(fields[2])
		if err != nil {
			return nil, &MalformedRuleError{
				Line:   lineNumber,
				Reason: fmt.Sprintf("invalid duration %q: %v", fields[2], err),
				Err:    err,
			}
		}

		entries = append(entries, NewEntry(size, pattern, time.Duration(minutes)*time.Minute))
	}
	return &Schedule{source: text, entries: entries}, nil
}

// Validate attempts a parse and returns the first failure, if any. It is the
// probe behind editor and CLI format checks.
func Validate(text string) error {
	_, err := Parse(text)
	return err
}

func parseSize(field string) (Size, error) {
	if field == "*" {
		return All, nil
	}
	n, err := parseNonNegativeInt(field)
	if err != nil {
		return 0, err
	}
	return Size(n), nil
}

func parseNonNegativeInt(field string) (int, error) {
	n, err := strconv.Atoi(field)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

// Source returns the canonical rule text this schedule was parsed from.
func (s *Schedule) Source() string { return s.source }

// Entries returns a copy of the parsed entries in textual order.
func (s *Schedule) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// SizeOfReservation returns the total slots reserved on node at t: the sum of
// every entry's contribution. Contributions add and are never capped at the
// node's executor count; a schedule that over-reserves a node is legal here
// and is the caller's policy to reject.
func (s *Schedule) SizeOfReservation(node Node, t time.Time) (int, error) {
	total := 0
	for _, e := range s.entries {
		n, err := e.SizeOfReservation(node, t)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// TimeOfNextChange returns the earliest instant at which any entry's
// contribution could change, or Never for an empty schedule.
func (s *Schedule) TimeOfNextChange(t time.Time) (time.Time, error) {
	next := Never
	for _, e := range s.entries {
		c, err := e.TimeOfNextChange(t)
		if err != nil {
			return time.Time{}, err
		}
		if c.Before(next) {
			next = c
		}
	}
	return next, nil
}
