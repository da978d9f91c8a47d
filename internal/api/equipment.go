package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/custody/internal/imaging"
	"github.com/erazemk/custody/internal/model"
	"github.com/erazemk/custody/internal/store"
)

// EquipmentHandler handles the equipment registry endpoints.
type EquipmentHandler struct {
	DB        *sql.DB
	Catalogue []string
}

// Types handles GET /api/equipment-types. Configured types come first in
// their configured order, followed by any other type already provisioned.
func (h *EquipmentHandler) Types(w http.ResponseWriter, r *http.Request) {
	stored, err := store.ListEquipmentTypes(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list equipment types", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list equipment types")
		return
	}

	seen := make(map[string]bool, len(h.Catalogue)+len(stored))
	types := make([]string, 0, len(h.Catalogue)+len(stored))
	for _, t := range append(append([]string{}, h.Catalogue...), stored...) {
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	jsonResponse(w, http.StatusOK, types)
}

// List handles GET /api/equipment, optionally filtered by ?type=.
func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	units, err := store.ListEquipmentByType(r.Context(), h.DB, r.URL.Query().Get("type"))
	if err != nil {
		slog.Error("failed to list equipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list equipment")
		return
	}
	if units == nil {
		units = []model.EquipmentUnit{}
	}
	jsonResponse(w, http.StatusOK, units)
}

// Get handles GET /api/equipment/{id}.
func (h *EquipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	unit, ok := h.lookup(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, unit)
}

// Provision handles POST /api/equipment.
func (h *EquipmentHandler) Provision(w http.ResponseWriter, r *http.Request) {
	var req store.ProvisionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.EquipmentType) == "" || strings.TrimSpace(req.Custodian) == "" {
		jsonError(w, http.StatusUnprocessableEntity, "id, equipment_type and custodian are required")
		return
	}

	unit, err := store.ProvisionEquipment(r.Context(), h.DB, req)
	switch {
	case errors.Is(err, store.ErrNotFound):
		codedError(w, http.StatusUnprocessableEntity, "InvalidCustodian", "custodian is not a recognized unit")
		return
	case errors.Is(err, store.ErrAlreadyExists):
		jsonError(w, http.StatusConflict, "equipment already exists")
		return
	case err != nil:
		slog.Error("failed to provision equipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to provision equipment")
		return
	}

	slog.Info("equipment provisioned", "user", GetClaims(r.Context()).Username,
		"equipment", unit.ID, "type", unit.EquipmentType, "custodian", unit.CurrentCustodian)
	jsonResponse(w, http.StatusCreated, unit)
}

// History handles GET /api/equipment/{id}/history.
func (h *EquipmentHandler) History(w http.ResponseWriter, r *http.Request) {
	unit, ok := h.lookup(w, r)
	if !ok {
		return
	}

	history, err := store.GetEquipmentHistory(r.Context(), h.DB, unit.ID)
	if err != nil {
		slog.Error("failed to get equipment history", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get equipment history")
		return
	}
	if history == nil {
		history = []model.TransferRecord{}
	}
	jsonResponse(w, http.StatusOK, history)
}

// UploadImage handles PUT /api/equipment/{id}/image (multipart field "image").
func (h *EquipmentHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Normalise(file)
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		jsonError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		jsonError(w, http.StatusUnsupportedMediaType, "image must be JPEG, PNG, or WebP")
		return
	case err != nil:
		slog.Error("failed to process image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to process image")
		return
	}

	err = store.SetEquipmentImage(r.Context(), h.DB, id, photo.Data, imaging.MIME)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "equipment not found")
		return
	}
	if err != nil {
		slog.Error("failed to save image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{"message": "image uploaded", "width": photo.Width, "height": photo.Height})
}

// GetImage handles GET /api/equipment/{id}/image.
func (h *EquipmentHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := store.GetEquipmentImage(r.Context(), h.DB, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}
	if err != nil {
		slog.Error("failed to get image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}

func (h *EquipmentHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.EquipmentUnit, bool) {
	unit, err := store.GetEquipment(r.Context(), h.DB, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		codedError(w, http.StatusNotFound, "EquipmentNotFound", "equipment not found")
		return nil, false
	}
	if err != nil {
		slog.Error("failed to get equipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get equipment")
		return nil, false
	}
	return unit, true
}
