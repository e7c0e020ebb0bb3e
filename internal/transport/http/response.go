package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"data-quality-service/internal/repository"
	"data-quality-service/internal/service"
)

type apiError struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, apiError{Message: msg})
}

// writeServiceErr maps service and store errors onto status codes. Anything
// unexpected is logged and answered with a generic 500.
func writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeErr(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrInvalidInput):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrJobNotCompleted), errors.Is(err, repository.ErrInvalidTransition):
		writeErr(w, http.StatusConflict, err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().
			Str("req_id", middleware.GetReqID(r.Context())).
			Err(err).
			Msg("request failed")
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}
