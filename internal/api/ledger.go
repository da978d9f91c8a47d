package api

import (
	"bytes"
	"database/sql"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/erazemk/custody/internal/export"
	"github.com/erazemk/custody/internal/store"
)

// LedgerHandler serves ledger-wide reports.
type LedgerHandler struct {
	DB       *sql.DB
	Location *time.Location
	Now      func() time.Time
}

type ledgerStats struct {
	Transfers int64 `json:"transfers"`
}

// Stats handles GET /api/ledger/stats.
func (h *LedgerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	n, err := store.CountTransfers(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to count transfers", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to count transfers")
		return
	}
	jsonResponse(w, http.StatusOK, ledgerStats{Transfers: n})
}

// Export handles GET /api/export/ledger.xlsx.
func (h *LedgerHandler) Export(w http.ResponseWriter, r *http.Request) {
	recs, err := store.ListTransfers(r.Context(), h.DB, store.TransferFilter{})
	if err != nil {
		slog.Error("failed to list transfers for export", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export ledger")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteLedger(&buf, recs, h.Location); err != nil {
		slog.Error("failed to write workbook", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export ledger")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": export.FileName(h.Now(), h.Location),
	}))
	buf.WriteTo(w)
	slog.Info("ledger exported", "user", GetClaims(r.Context()).Username, "transfers", len(recs))
}
