/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package reservation evaluates recurring executor-slot reservations against
// points in time. A schedule is parsed once from rule text and is then a pure
// function of (node, timestamp): no state, no I/O, safe for concurrent
// readers.
package reservation

import (
	"strconv"
	"time"

	"github.com/friendsincode/slotsquatter/internal/recurrence"
)

// Node is the minimal view of a compute resource a reservation can apply to.
type Node interface {
	// ExecutorCount returns the node's total executor slots.
	ExecutorCount() int
}

// Size is the number of slots a rule reserves. The sentinel All resolves to
// every slot on the node at evaluation time.
type Size int

// All is the size written as "*" in the rule text.
const All Size = -1

// Resolve returns the concrete slot count for the given node.
func (s Size) Resolve(node Node) int {
	if s < 0 {
		return node.ExecutorCount()
	}
	return int(s)
}

func (s Size) String() string {
	if s < 0 {
		return "*"
	}
	return strconv.Itoa(int(s))
}

// Entry is one parsed rule: a size, a recurrence pattern, and a window
// duration. Each occurrence of the pattern opens a half-open window
// [occurrence, occurrence+duration) during which the entry reserves its size.
// Entries are immutable after construction.
type Entry struct {
	size     Size
	pattern  *recurrence.Pattern
	duration time.Duration
}

// NewEntry constructs an entry. Duration must be non-negative; overlapping
// windows from the same entry are legal and each counts on its own.
func NewEntry(size Size, pattern *recurrence.Pattern, duration time.Duration) Entry {
	return Entry{size: size, pattern: pattern, duration: duration}
}

// Size returns the entry's reservation size.
func (e Entry) Size() Size { return e.size }

// Pattern returns the entry's recurrence pattern.
func (e Entry) Pattern() *recurrence.Pattern { return e.pattern }

// Duration returns the entry's window length.
func (e Entry) Duration() time.Duration { return e.duration }

// SizeOfReservation returns the slots this entry reserves on node at t: its
// resolved size when t falls inside the window opened by the most recent
// occurrence, zero otherwise.
func (e Entry) SizeOfReservation(node Node, t time.Time) (int, error) {
	start, err := e.pattern.Floor(t)
	if err != nil {
		return 0, err
	}
	if !t.Before(start) && t.Before(start.Add(e.duration)) {
		return e.size.Resolve(node), nil
	}
	return 0, nil
}

// TimeOfNextChange returns the next instant at which this entry's
// contribution could differ from its value at t, for any node. Because
// occurrence search is inclusive, the result can equal t itself; callers that
// re-query should advance by at least one minute first.
func (e Entry) TimeOfNextChange(t time.Time) (time.Time, error) {
	floor, err := e.pattern.Floor(t)
	if err != nil {
		return time.Time{}, err
	}
	start, err := e.pattern.Ceil(t)
	if err != nil {
		return time.Time{}, err
	}
	end := floor.Add(e.duration)
	if t.Before(end) {
		// Inside a window: it either closes at end or a new occurrence opens
		// first (possible when windows outlast the recurrence interval).
		if end.Before(start) {
			return end, nil
		}
		return start, nil
	}
	return start, nil
}
