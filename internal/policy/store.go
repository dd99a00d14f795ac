/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package policy stores reservation policies. A policy persists only its
// canonical rule text; parsed schedules are re-derived from the text after
// every load and cached in memory per policy revision.
package policy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/slotsquatter/internal/events"
	"github.com/friendsincode/slotsquatter/internal/models"
	"github.com/friendsincode/slotsquatter/internal/reservation"
	"github.com/friendsincode/slotsquatter/internal/telemetry"
)

// Store provides reservation policy CRUD and schedule derivation.
type Store struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string]cachedSchedule
}

type cachedSchedule struct {
	updatedAt time.Time
	schedule  *reservation.Schedule
}

// NewStore creates a policy store.
func NewStore(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "policy_store").Logger(),
		cache:  make(map[string]cachedSchedule),
	}
}

// Create validates the policy's rule text and persists it. A missing ID is
// assigned.
func (s *Store) Create(ctx context.Context, p *models.ReservationPolicy) error {
	if err := reservation.Validate(p.Format); err != nil {
		return fmt.Errorf("invalid reservation format: %w", err)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create policy: %w", err)
	}
	s.publish(events.EventPolicyCreated, p)
	return nil
}

// Update validates and saves the policy, invalidating its cached schedule.
func (s *Store) Update(ctx context.Context, p *models.ReservationPolicy) error {
	if err := reservation.Validate(p.Format); err != nil {
		return fmt.Errorf("invalid reservation format: %w", err)
	}
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("update policy: %w", err)
	}
	s.invalidate(p.ID)
	s.publish(events.EventPolicyUpdated, p)
	return nil
}

// Delete removes the policy.
func (s *Store) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.ReservationPolicy{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete policy: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	s.invalidate(id)
	s.bus.Publish(events.EventPolicyDeleted, events.Payload{"policy_id": id})
	return nil
}

// Get returns one policy by ID.
func (s *Store) Get(ctx context.Context, id string) (*models.ReservationPolicy, error) {
	var p models.ReservationPolicy
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns all policies ordered by node name.
func (s *Store) List(ctx context.Context) ([]models.ReservationPolicy, error) {
	var out []models.ReservationPolicy
	if err := s.db.WithContext(ctx).Order("node_name, name").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SquattersFor returns the parsed schedules of every active policy for the
// named node. It implements the scheduler's squatter source capability. A
// stored policy whose text no longer parses aborts the evaluation; policies
// are validated on write, so this indicates outside tampering with the store.
func (s *Store) SquattersFor(ctx context.Context, nodeName string) ([]reservation.Squatter, error) {
	var policies []models.ReservationPolicy
	err := s.db.WithContext(ctx).
		Where("node_name = ? AND active = ?", nodeName, true).
		Order("name").
		Find(&policies).Error
	if err != nil {
		return nil, fmt.Errorf("load policies for %s: %w", nodeName, err)
	}

	squatters := make([]reservation.Squatter, 0, len(policies))
	for i := range policies {
		schedule, err := s.scheduleFor(&policies[i])
		if err != nil {
			telemetry.PolicyParseErrorsTotal.Inc()
			return nil, fmt.Errorf("policy %s (%s): %w", policies[i].ID, policies[i].Name, err)
		}
		squatters = append(squatters, schedule)
	}
	return squatters, nil
}

func (s *Store) scheduleFor(p *models.ReservationPolicy) (*reservation.Schedule, error) {
	s.mu.RLock()
	cached, ok := s.cache[p.ID]
	s.mu.RUnlock()
	if ok && cached.updatedAt.Equal(p.UpdatedAt) {
		return cached.schedule, nil
	}

	schedule, err := reservation.Parse(p.Format)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[p.ID] = cachedSchedule{updatedAt: p.UpdatedAt, schedule: schedule}
	s.mu.Unlock()
	return schedule, nil
}

func (s *Store) invalidate(id string) {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
}

func (s *Store) publish(eventType events.EventType, p *models.ReservationPolicy) {
	s.bus.Publish(eventType, events.Payload{
		"policy_id": p.ID,
		"node_name": p.NodeName,
	})
}
