package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/eduhub/edupay/internal/errs"
)

type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details any) {
	WriteJSON(w, status, APIError{Error: msg, Code: code, Details: details})
}

// WriteDomainError maps the payment error taxonomy onto HTTP. Raw provider
// payloads never reach the caller; the message is the classified summary.
func WriteDomainError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status := http.StatusBadGateway
	switch kind {
	case errs.KindValidation:
		status = http.StatusBadRequest
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindConfig:
		status = http.StatusInternalServerError
	case errs.KindVerificationFailed, errs.KindAuthenticity:
		status = http.StatusUnprocessableEntity
	case errs.KindUpstream:
		status = http.StatusBadGateway
	}
	WriteError(w, status, string(kind), err.Error(), nil)
}
