package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rpggio/trackboard/internal/domain/project"
)

// Messages written to the error envelope.
const (
	MsgMissingFields = "Missing required fields"
	MsgInvalidBody   = "Invalid request body"
	MsgNotFound      = "Project not found"
	MsgInternal      = "Internal server error"
	MsgRateLimited   = "Too many requests"
)

// DataEnvelope wraps a successful payload.
type DataEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope wraps a failure message.
type ErrorEnvelope struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// WriteData writes {"data": payload} with the given status.
func WriteData(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, DataEnvelope{Data: payload})
}

// WriteError writes {"error": message} with the given status.
func WriteError(w http.ResponseWriter, status int, message string, fields []string) {
	writeJSON(w, status, ErrorEnvelope{Error: message, Fields: fields})
}

// WriteServiceError maps a request layer error to its HTTP status and envelope.
func WriteServiceError(w http.ResponseWriter, err error) {
	var (
		verr *project.ValidationError
		terr *project.TransientError
	)
	switch {
	case errors.As(err, &verr):
		WriteError(w, http.StatusBadRequest, MsgMissingFields, verr.Fields)
	case errors.Is(err, project.ErrValidation):
		WriteError(w, http.StatusBadRequest, MsgMissingFields, nil)
	case errors.Is(err, project.ErrNotFound):
		WriteError(w, http.StatusNotFound, MsgNotFound, nil)
	case errors.As(err, &terr):
		WriteError(w, http.StatusInternalServerError, terr.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, MsgInternal, nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
