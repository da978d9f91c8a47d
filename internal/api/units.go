package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/custody/internal/model"
	"github.com/erazemk/custody/internal/store"
)

// UnitsHandler handles the recognized unit registry.
type UnitsHandler struct {
	DB *sql.DB
}

type createUnitRequest struct {
	ID string `json:"id"`
}

// List handles GET /api/units.
func (h *UnitsHandler) List(w http.ResponseWriter, r *http.Request) {
	units, err := store.ListUnits(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list units", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list units")
		return
	}
	if units == nil {
		units = []model.Unit{}
	}
	jsonResponse(w, http.StatusOK, units)
}

// Create handles POST /api/units.
func (h *UnitsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUnitRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		jsonError(w, http.StatusUnprocessableEntity, "unit id required")
		return
	}

	unit, err := store.CreateUnit(r.Context(), h.DB, req.ID)
	if errors.Is(err, store.ErrAlreadyExists) {
		jsonError(w, http.StatusConflict, "unit already exists")
		return
	}
	if err != nil {
		slog.Error("failed to create unit", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create unit")
		return
	}

	slog.Info("unit created", "user", GetClaims(r.Context()).Username, "unit", unit.ID)
	jsonResponse(w, http.StatusCreated, unit)
}

// Holdings handles GET /api/units/{id}/equipment.
func (h *UnitsHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := store.GetUnit(r.Context(), h.DB, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "unit not found")
			return
		}
		slog.Error("failed to get unit", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get unit")
		return
	}

	held, err := store.GetUnitHoldings(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to list holdings", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list holdings")
		return
	}
	if held == nil {
		held = []model.EquipmentUnit{}
	}
	jsonResponse(w, http.StatusOK, held)
}
