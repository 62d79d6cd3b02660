package web

import (
	"encoding/json"
	"net/http"

	appLog "moncal/internal/log"
	"moncal/internal/model"
)

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg})
}

// writeErr maps an error to a status: validation failures are the client's
// and echo their message; everything else is logged and hidden behind a
// generic 500.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if model.IsValidation(err) {
		appLog.Debug("request rejected", "path", r.URL.Path, "reason", err.Error(), "request_id", requestID(r.Context()))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	appLog.Error("request failed", err, "method", r.Method, "path", r.URL.Path, "request_id", requestID(r.Context()))
	msg := "internal error"
	if model.IsPersistence(err) {
		msg = "event store unavailable"
	}
	writeError(w, http.StatusInternalServerError, msg)
}
