/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduler runs the host-side evaluation loop: it aggregates
// reserved slots per node from every registered squatter source, exports the
// results, and tracks when each node's answer can next change.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/slotsquatter/internal/events"
	"github.com/friendsincode/slotsquatter/internal/inventory"
	"github.com/friendsincode/slotsquatter/internal/reservation"
	"github.com/friendsincode/slotsquatter/internal/telemetry"
)

// minAdvance keeps the loop from re-querying at the very instant a window
// opens: occurrence search is inclusive, so the evaluator can legitimately
// report "now" as the next change.
const minAdvance = time.Minute

// SquatterSource yields the reservation squatters that apply to a node.
type SquatterSource interface {
	SquattersFor(ctx context.Context, nodeName string) ([]reservation.Squatter, error)
}

// Service evaluates reservations for every inventory node.
type Service struct {
	inventory *inventory.Inventory
	bus       *events.Bus
	logger    zerolog.Logger
	interval  time.Duration

	mu      sync.Mutex
	sources []SquatterSource
	state   map[string]nodeState
}

type nodeState struct {
	reserved   int
	nextChange time.Time
}

// New constructs the scheduler service.
func New(inv *inventory.Inventory, source SquatterSource, bus *events.Bus, interval time.Duration, logger zerolog.Logger) *Service {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Service{
		inventory: inv,
		bus:       bus,
		logger:    logger.With().Str("component", "scheduler").Logger(),
		interval:  interval,
		sources:   []SquatterSource{source},
		state:     make(map[string]nodeState),
	}
}

// Register adds another squatter source. All sources' contributions sum.
// Per-node state is dropped so the next tick includes the new source.
func (s *Service) Register(source SquatterSource) {
	s.mu.Lock()
	s.sources = append(s.sources, source)
	s.state = make(map[string]nodeState)
	s.mu.Unlock()
}

// Run executes the evaluation loop until the context is cancelled. Policy
// mutations trigger an immediate re-evaluation.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	created := s.bus.Subscribe(events.EventPolicyCreated)
	updated := s.bus.Subscribe(events.EventPolicyUpdated)
	deleted := s.bus.Subscribe(events.EventPolicyDeleted)
	defer func() {
		s.bus.Unsubscribe(events.EventPolicyCreated, created)
		s.bus.Unsubscribe(events.EventPolicyUpdated, updated)
		s.bus.Unsubscribe(events.EventPolicyDeleted, deleted)
	}()

	s.logger.Info().Dur("interval", s.interval).Msg("scheduler loop started")
	s.Tick(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx, time.Now())
		case <-created:
			s.invalidate()
			s.Tick(ctx, time.Now())
		case <-updated:
			s.invalidate()
			s.Tick(ctx, time.Now())
		case <-deleted:
			s.invalidate()
			s.Tick(ctx, time.Now())
		}
	}
}

// Tick evaluates every node at the given instant. Nodes whose previously
// computed next-change instant is still ahead keep their last answer; policy
// mutations invalidate that state so the following tick re-evaluates.
func (s *Service) Tick(ctx context.Context, now time.Time) {
	telemetry.SchedulerTicksTotal.Inc()
	ctx, span := telemetry.StartSpan(ctx, "slotsquatter/scheduler", "tick")
	defer span.End()

	for _, node := range s.inventory.Nodes() {
		if s.upToDate(node.Name, now) {
			continue
		}
		s.evaluateNode(ctx, node, now)
	}
}

// upToDate reports whether the node's last evaluation still holds at now.
func (s *Service) upToDate(nodeName string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, known := s.state[nodeName]
	return known && state.nextChange.After(now)
}

// invalidate drops all per-node state so the next tick evaluates every node.
func (s *Service) invalidate() {
	s.mu.Lock()
	s.state = make(map[string]nodeState)
	s.mu.Unlock()
}

func (s *Service) evaluateNode(ctx context.Context, node *inventory.Node, now time.Time) {
	reserved, err := s.ReservedSlots(ctx, node.Name, now)
	if err != nil {
		s.logger.Error().Err(err).Str("node", node.Name).Msg("reservation evaluation failed")
		telemetry.SchedulerErrorsTotal.WithLabelValues(node.Name, "evaluate").Inc()
		return
	}
	next, err := s.NextChange(ctx, node.Name, now)
	if err != nil {
		s.logger.Error().Err(err).Str("node", node.Name).Msg("next-change computation failed")
		telemetry.SchedulerErrorsTotal.WithLabelValues(node.Name, "next_change").Inc()
		return
	}
	// Minimum-advance safeguard: treat "changes now" as "re-check shortly".
	if !next.Equal(reservation.Never) && next.Before(now.Add(minAdvance)) {
		next = now.Add(minAdvance)
	}

	telemetry.ReservedSlots.WithLabelValues(node.Name).Set(float64(reserved))

	s.mu.Lock()
	previous, known := s.state[node.Name]
	s.state[node.Name] = nodeState{reserved: reserved, nextChange: next}
	s.mu.Unlock()

	if !known || previous.reserved != reserved {
		s.logger.Info().
			Str("node", node.Name).
			Int("reserved", reserved).
			Int("executors", node.Executors).
			Time("next_change", next).
			Msg("reservation level changed")
	}
}

// ReservedSlots returns the aggregate slots reserved on the named node at t,
// summed across every source (never capped at the node's executor count).
func (s *Service) ReservedSlots(ctx context.Context, nodeName string, t time.Time) (int, error) {
	node, ok := s.inventory.Lookup(nodeName)
	if !ok {
		return 0, &UnknownNodeError{Name: nodeName}
	}

	total := 0
	for _, source := range s.snapshotSources() {
		squatters, err := source.SquattersFor(ctx, nodeName)
		if err != nil {
			return 0, err
		}
		for _, sq := range squatters {
			n, err := sq.SizeOfReservation(node, t)
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	return total, nil
}

// NextChange returns the earliest instant at which the named node's
// aggregate reservation could change, or reservation.Never when no source
// has an upcoming window.
func (s *Service) NextChange(ctx context.Context, nodeName string, t time.Time) (time.Time, error) {
	if _, ok := s.inventory.Lookup(nodeName); !ok {
		return time.Time{}, &UnknownNodeError{Name: nodeName}
	}

	next := reservation.Never
	for _, source := range s.snapshotSources() {
		squatters, err := source.SquattersFor(ctx, nodeName)
		if err != nil {
			return time.Time{}, err
		}
		for _, sq := range squatters {
			c, err := sq.TimeOfNextChange(t)
			if err != nil {
				return time.Time{}, err
			}
			if c.Before(next) {
				next = c
			}
		}
	}
	return next, nil
}

func (s *Service) snapshotSources() []SquatterSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SquatterSource(nil), s.sources...)
}

// UnknownNodeError reports a query for a node missing from the inventory.
type UnknownNodeError struct {
	Name string
}

func (e *UnknownNodeError) Error() string {
	return "unknown node: " + e.Name
}
