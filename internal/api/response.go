package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/custody/internal/custody"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response whose code is derived from status.
func jsonError(w http.ResponseWriter, status int, message string) {
	codedError(w, status, strings.ReplaceAll(http.StatusText(status), " ", ""), message)
}

// codedError writes a JSON error response with an explicit code.
func codedError(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, errorResponse{Error: message, Code: code})
}

// workflowError maps a custody workflow error onto an HTTP response.
func workflowError(w http.ResponseWriter, err error) {
	code := custody.Code(err)
	switch custody.Classify(err) {
	case custody.KindValidation:
		status := http.StatusUnprocessableEntity
		if code == custody.ErrEquipmentNotFound.Code {
			status = http.StatusNotFound
		}
		codedError(w, status, code, err.Error())
	case custody.KindConcurrency:
		codedError(w, http.StatusConflict, code, err.Error())
	case custody.KindNumbering:
		codedError(w, http.StatusServiceUnavailable, code, "certificate numbering unavailable, try again later")
	default:
		codedError(w, http.StatusInternalServerError, code, "internal error")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
