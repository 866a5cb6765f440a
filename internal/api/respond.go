package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/soaringjerry/VisitPulse/internal/logger"
	"github.com/soaringjerry/VisitPulse/internal/middleware"
	"github.com/soaringjerry/VisitPulse/internal/services"
	"github.com/soaringjerry/VisitPulse/internal/utils"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps service errors to their status; anything else is logged
// and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	locale := middleware.LocaleFromContext(r.Context())
	if se, ok := services.AsServiceError(err); ok {
		msg := utils.T(locale, se.Message)
		if se.Code == services.ErrorNotFound {
			msg = utils.T(locale, "error.not_found")
		}
		writeJSON(w, statusFor(se.Code), errorBody{Error: msg, Fields: se.Fields})
		return
	}
	log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: utils.T(locale, "error.internal")})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return services.NewInvalidError("request body required")
		}
		return services.NewInvalidError(fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}
