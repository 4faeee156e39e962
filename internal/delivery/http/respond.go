package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mmuslimabdulj/persona-chat/internal/domain"
)

const maxBodyBytes = 64 << 10

type errorBody struct {
	Error   domain.ErrorKind   `json:"error"`
	Message string             `json:"message"`
	Detail  *domain.CreditHint `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInsufficientCredits:
		return http.StatusPaymentRequired
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindBadRequest:
		return http.StatusBadRequest
	case domain.KindGenerationFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError maps domain errors to status codes. Anything else is logged and hidden.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "internal",
			"message": "internal server error",
		})
		return
	}
	writeJSON(w, statusFor(de.Kind), errorBody{Error: de.Kind, Message: de.Message, Detail: de.Hint})
}

// decode reads a JSON body into dst and validates its struct tags
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return domain.BadRequest("invalid request body")
	}
	if err := h.validate.Struct(dst); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) {
			return domain.BadRequest("%s", describe(fields))
		}
		return domain.BadRequest("invalid request")
	}
	return nil
}

func describe(fields validator.ValidationErrors) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field(), f.Tag()))
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}
