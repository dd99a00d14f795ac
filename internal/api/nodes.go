/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/slotsquatter/internal/recurrence"
	"github.com/friendsincode/slotsquatter/internal/reservation"
	"github.com/friendsincode/slotsquatter/internal/scheduler"
)

// ReservationResponse is the query answer for one node at one instant.
type ReservationResponse struct {
	Node       string     `json:"node"`
	Executors  int        `json:"executors"`
	At         time.Time  `json:"at"`
	Reserved   int        `json:"reserved"`
	NextChange *time.Time `json:"next_change,omitempty"`
	Never      bool       `json:"never,omitempty"`
}

func (a *API) handleListNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"nodes": a.inventory.Nodes()})
}

// handleNodeReservation answers "how many slots are reserved at t, and when
// can that answer change". t defaults to now and is passed as RFC 3339 in the
// "at" query parameter.
func (a *API) handleNodeReservation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	at := time.Now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'at' timestamp, expected RFC 3339")
			return
		}
		at = parsed
	}

	node, ok := a.inventory.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown node")
		return
	}

	reserved, err := a.scheduler.ReservedSlots(r.Context(), name, at)
	if err != nil {
		a.respondQueryError(w, err)
		return
	}
	next, err := a.scheduler.NextChange(r.Context(), name, at)
	if err != nil {
		a.respondQueryError(w, err)
		return
	}

	resp := ReservationResponse{
		Node:      name,
		Executors: node.ExecutorCount(),
		At:        at,
		Reserved:  reserved,
	}
	if next.Equal(reservation.Never) {
		resp.Never = true
	} else {
		resp.NextChange = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) respondQueryError(w http.ResponseWriter, err error) {
	var unknown *scheduler.UnknownNodeError
	switch {
	case errors.As(err, &unknown):
		writeError(w, http.StatusNotFound, "unknown node")
	case errors.Is(err, recurrence.ErrNoOccurrence):
		// A stored pattern that structurally never matches; distinct from a
		// normal zero-size answer.
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		a.logger.Error().Err(err).Msg("reservation query failed")
		writeError(w, http.StatusInternalServerError, "reservation query failed")
	}
}
