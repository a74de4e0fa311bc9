package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"storefront/apperr"
)

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "err", err)
	}
}

// RespondWithAppError translates err into a status code and {"error": msg}.
// Server-side causes are logged and replaced by a generic message.
func RespondWithAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := apperr.Status(kind)
	msg := apperr.Message(err)
	if !apperr.Exposed(kind) {
		slog.Error("request failed", "kind", kind.String(), "err", err)
		msg = http.StatusText(status)
	}
	RespondWithError(w, status, msg)
}

// RespondWithMessage writes {"message": msg, "data": data}; data is omitted when nil.
func RespondWithMessage(w http.ResponseWriter, status int, msg string, data any) {
	body := M{"message": msg}
	if data != nil {
		body["data"] = data
	}
	RespondWithJSON(w, status, body)
}

type M map[string]any
