package api

import (
	"bytes"
	"database/sql"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/erazemk/custody/internal/certificate"
	"github.com/erazemk/custody/internal/custody"
	"github.com/erazemk/custody/internal/model"
	"github.com/erazemk/custody/internal/store"
)

// TransfersHandler handles transfer submission and ledger reads.
type TransfersHandler struct {
	DB       *sql.DB
	Service  *custody.Service
	Renderer *certificate.Renderer
	Now      func() time.Time
}

type transferResponse struct {
	*model.TransferRecord
	Certificate string `json:"certificate"`
}

func newTransferResponse(rec *model.TransferRecord) transferResponse {
	return transferResponse{TransferRecord: rec, Certificate: rec.Certificate()}
}

// Create handles POST /api/transfers.
func (h *TransfersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req custody.Request
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	req.SubmittedBy = &claims.UserID

	rec, err := h.Service.Transfer(r.Context(), req)
	if err != nil {
		workflowError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, newTransferResponse(rec))
}

// List handles GET /api/transfers, optionally filtered by ?equipment_id= and ?unit=.
func (h *TransfersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	recs, err := store.ListTransfers(r.Context(), h.DB, store.TransferFilter{
		EquipmentID: q.Get("equipment_id"),
		Unit:        q.Get("unit"),
	})
	if err != nil {
		slog.Error("failed to list transfers", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list transfers")
		return
	}

	out := make([]transferResponse, len(recs))
	for i := range recs {
		out[i] = newTransferResponse(&recs[i])
	}
	jsonResponse(w, http.StatusOK, out)
}

// Get handles GET /api/transfers/{no}. Both "7" and "0007" are accepted.
func (h *TransfersHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, newTransferResponse(rec))
}

// Certificate handles GET /api/transfers/{no}/certificate.
func (h *TransfersHandler) Certificate(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}

	eq, err := store.GetEquipment(r.Context(), h.DB, rec.EquipmentID)
	if err != nil {
		slog.Error("failed to get equipment for certificate", "certificate", rec.Certificate(), "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to render certificate")
		return
	}

	var buf bytes.Buffer
	if err := h.Renderer.Render(&buf, rec, eq, h.Now()); err != nil {
		slog.Error("failed to render certificate", "certificate", rec.Certificate(), "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to render certificate")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{
		"filename": certificate.FileName(rec),
	}))
	buf.WriteTo(w)
}

func (h *TransfersHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.TransferRecord, bool) {
	no, err := model.ParseCertificateNo(r.PathValue("no"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	rec, err := store.GetTransfer(r.Context(), h.DB, no)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "transfer not found")
		return nil, false
	}
	if err != nil {
		slog.Error("failed to get transfer", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get transfer")
		return nil, false
	}
	return rec, true
}
