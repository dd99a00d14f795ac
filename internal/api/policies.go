/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/friendsincode/slotsquatter/internal/models"
	"github.com/friendsincode/slotsquatter/internal/reservation"
)

// ValidateRequest carries rule text to check.
type ValidateRequest struct {
	Format string `json:"format"`
}

// ValidateResponse reports the first parse failure, if any.
type ValidateResponse struct {
	OK    bool   `json:"ok"`
	Line  int    `json:"line,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleValidate checks rule text without storing anything. Malformed text is
// a normal response, not an HTTP error: editors surface the line and message
// inline.
func (a *API) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := reservation.Validate(req.Format); err != nil {
		resp := ValidateResponse{OK: false, Error: err.Error()}
		var malformed *reservation.MalformedRuleError
		if errors.As(err, &malformed) {
			resp.Line = malformed.Line
			resp.Error = malformed.Reason
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusOK, ValidateResponse{OK: true})
}

// policyRequest uses pointers where the zero value is meaningful: an empty
// format is a valid (all-comment or blank) schedule, so only an absent field
// means "keep the stored text".
type policyRequest struct {
	NodeName string  `json:"node_name"`
	Name     string  `json:"name"`
	Format   *string `json:"format,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

func (a *API) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := a.policies.List(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list policies failed")
		writeError(w, http.StatusInternalServerError, "list policies failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"policies": policies})
}

func (a *API) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := a.policies.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "policy not found")
			return
		}
		a.logger.Error().Err(err).Msg("get policy failed")
		writeError(w, http.StatusInternalServerError, "get policy failed")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.NodeName == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "node_name and name are required")
		return
	}
	if _, ok := a.inventory.Lookup(req.NodeName); !ok {
		writeError(w, http.StatusBadRequest, "unknown node")
		return
	}

	p := &models.ReservationPolicy{
		NodeName: req.NodeName,
		Name:     req.Name,
		Active:   true,
	}
	if req.Format != nil {
		p.Format = *req.Format
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if err := a.policies.Create(r.Context(), p); err != nil {
		a.respondPolicyError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	p, err := a.policies.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "policy not found")
			return
		}
		a.logger.Error().Err(err).Msg("get policy failed")
		writeError(w, http.StatusInternalServerError, "get policy failed")
		return
	}

	var req policyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.NodeName != "" {
		if _, ok := a.inventory.Lookup(req.NodeName); !ok {
			writeError(w, http.StatusBadRequest, "unknown node")
			return
		}
		p.NodeName = req.NodeName
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Format != nil {
		p.Format = *req.Format
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	if err := a.policies.Update(r.Context(), p); err != nil {
		a.respondPolicyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleDeletePolicy(w http.ResponseWriter, r *http.Request) {
	err := a.policies.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "policy not found")
			return
		}
		a.logger.Error().Err(err).Msg("delete policy failed")
		writeError(w, http.StatusInternalServerError, "delete policy failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) respondPolicyError(w http.ResponseWriter, err error) {
	var malformed *reservation.MalformedRuleError
	if errors.As(err, &malformed) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "invalid reservation format",
			"line":   malformed.Line,
			"detail": malformed.Reason,
		})
		return
	}
	a.logger.Error().Err(err).Msg("policy write failed")
	writeError(w, http.StatusInternalServerError, "policy write failed")
}
