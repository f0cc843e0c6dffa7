package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"hotelbooking/internal/auth"
	"hotelbooking/internal/booking"
	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
)

const kindUnauthenticated = "unauthenticated"

var kindStatus = map[booking.Kind]int{
	booking.KindValidation: http.StatusBadRequest,
	booking.KindCapacity:   http.StatusUnprocessableEntity,
	booking.KindNotFound:   http.StatusNotFound,
	booking.KindConflict:   http.StatusConflict,
	booking.KindForbidden:  http.StatusForbidden,
	booking.KindRateLimit:  http.StatusTooManyRequests,
}

type errorBody struct {
	Error   string                 `json:"error"`
	Kind    string                 `json:"kind,omitempty"`
	Allowed []models.BookingStatus `json:"allowed,omitempty"`
}

// statusFor maps err to an HTTP status and error body.
func statusFor(err error) (int, errorBody) {
	if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrInvalidToken) {
		return http.StatusUnauthorized, errorBody{Error: err.Error(), Kind: kindUnauthenticated}
	}

	kind := booking.KindOf(err)
	if code, ok := kindStatus[kind]; ok {
		return code, errorBody{Error: err.Error(), Kind: string(kind), Allowed: booking.AllowedOf(err)}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal error", Kind: "internal"}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError writes a classified error. Unclassified errors are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, body := statusFor(err)
	if code == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, code, body)
}

func writeMessage(w http.ResponseWriter, statusCode int, kind, message string) {
	writeJSON(w, statusCode, errorBody{Error: message, Kind: kind})
}

func badRequest(w http.ResponseWriter, message string) {
	writeMessage(w, http.StatusBadRequest, string(booking.KindValidation), message)
}
