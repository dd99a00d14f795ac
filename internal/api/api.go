/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/slotsquatter/internal/auth"
	"github.com/friendsincode/slotsquatter/internal/inventory"
	"github.com/friendsincode/slotsquatter/internal/policy"
	"github.com/friendsincode/slotsquatter/internal/scheduler"
)

// API exposes HTTP handlers.
type API struct {
	policies  *policy.Store
	scheduler *scheduler.Service
	inventory *inventory.Inventory
	jwtSecret []byte
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(policies *policy.Store, sched *scheduler.Service, inv *inventory.Inventory, jwtSecret []byte, logger zerolog.Logger) *API {
	return &API{
		policies:  policies,
		scheduler: sched,
		inventory: inv,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// AddRoutes mounts all API routes under the given router.
func (a *API) AddRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/validate", a.handleValidate)

		r.Get("/nodes", a.handleListNodes)
		r.Get("/nodes/{name}/reservation", a.handleNodeReservation)

		r.Get("/policies", a.handleListPolicies)
		r.Get("/policies/{id}", a.handleGetPolicy)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(a.jwtSecret))
			r.Post("/policies", a.handleCreatePolicy)
			r.Put("/policies/{id}", a.handleUpdatePolicy)
			r.Delete("/policies/{id}", a.handleDeletePolicy)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
