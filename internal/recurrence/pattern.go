/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package recurrence matches cron-like patterns against calendar instants at
// minute granularity. Unlike a running cron scheduler, it answers point
// queries: the latest occurrence at or before a timestamp (Floor) and the
// earliest occurrence at or after it (Ceil).
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrNoOccurrence is returned when a syntactically valid pattern has no
// occurrence within the search horizon (e.g., "0 0 30 2 *").
var ErrNoOccurrence = errors.New("no occurrence within search horizon")

// horizonYears bounds the Floor/Ceil search in each direction so that
// structurally unmatchable patterns fail instead of looping forever.
const horizonYears = 5

// starBit marks a field parsed from "*" or "?". Mirrors the unexported
// constant of the same name in robfig/cron; it participates in the standard
// cron rule that a restricted day-of-month and a restricted day-of-week are
// combined with OR rather than AND.
const starBit = 1 << 63

var parser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Pattern is an immutable five-field cron predicate. Safe for concurrent use.
type Pattern struct {
	expr string
	spec *cron.SpecSchedule
}

// Parse builds a Pattern from a standard five-field cron expression
// (minute hour day-of-month month day-of-week) or a calendar descriptor such
// as "@daily". Errors carry the cron library's diagnostic text so operators
// can see which field is wrong. "@every" descriptors are rejected: they carry
// no calendar fields and cannot answer floor/ceil queries.
func Parse(expr string) (*Pattern, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	spec, ok := sched.(*cron.SpecSchedule)
	if !ok {
		return nil, fmt.Errorf("unsupported pattern %q: interval descriptors have no calendar fields", expr)
	}
	return &Pattern{expr: expr, spec: spec}, nil
}

// String returns the original expression.
func (p *Pattern) String() string { return p.expr }

// Matches reports whether t, truncated to the minute, satisfies the pattern.
func (p *Pattern) Matches(t time.Time) bool {
	t = p.in(t)
	return p.minuteMatches(t) && p.hourMatches(t) && p.dayMatches(t) && p.monthMatches(t)
}

// Ceil returns the earliest matching instant at or after t. The result equals
// t (truncated to the minute) when t itself matches.
func (p *Pattern) Ceil(t time.Time) (time.Time, error) {
	t = truncateMinute(p.in(t))
	limit := t.AddDate(horizonYears, 0, 0)
	for {
		switch {
		case !p.monthMatches(t):
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
		case !p.dayMatches(t):
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
		case !p.hourMatches(t):
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, t.Location())
		case !p.minuteMatches(t):
			t = t.Add(time.Minute)
		default:
			return t, nil
		}
		if t.After(limit) {
			return time.Time{}, fmt.Errorf("pattern %q: %w", p.expr, ErrNoOccurrence)
		}
	}
}

// Floor returns the latest matching instant at or before t. The result equals
// t (truncated to the minute) when t itself matches.
func (p *Pattern) Floor(t time.Time) (time.Time, error) {
	t = truncateMinute(p.in(t))
	limit := t.AddDate(-horizonYears, 0, 0)
	for {
		switch {
		case !p.monthMatches(t):
			t = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).Add(-time.Minute)
		case !p.dayMatches(t):
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).Add(-time.Minute)
		case !p.hourMatches(t):
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location()).Add(-time.Minute)
		case !p.minuteMatches(t):
			t = t.Add(-time.Minute)
		default:
			return t, nil
		}
		if t.Before(limit) {
			return time.Time{}, fmt.Errorf("pattern %q: %w", p.expr, ErrNoOccurrence)
		}
	}
}

// in shifts t into the pattern's explicit time zone, if one was given with a
// "TZ=" prefix. Otherwise the query timestamp's own calendar is used, so the
// pattern and the timestamp are always evaluated against the same clock.
func (p *Pattern) in(t time.Time) time.Time {
	if p.spec.Location != time.Local {
		return t.In(p.spec.Location)
	}
	return t
}

func (p *Pattern) minuteMatches(t time.Time) bool {
	return 1<<uint(t.Minute())&p.spec.Minute > 0
}

func (p *Pattern) hourMatches(t time.Time) bool {
	return 1<<uint(t.Hour())&p.spec.Hour > 0
}

func (p *Pattern) monthMatches(t time.Time) bool {
	return 1<<uint(t.Month())&p.spec.Month > 0
}

func (p *Pattern) dayMatches(t time.Time) bool {
	domMatch := 1<<uint(t.Day())&p.spec.Dom > 0
	dowMatch := 1<<uint(t.Weekday())&p.spec.Dow > 0
	if p.spec.Dom&starBit > 0 || p.spec.Dow&starBit > 0 {
		return domMatch && dowMatch
	}
	return domMatch || dowMatch
}

func truncateMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}
