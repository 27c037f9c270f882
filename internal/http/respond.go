package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"aki/bff/internal/apperr"
	"aki/bff/internal/clients"
	"aki/bff/internal/logging"
	"aki/bff/internal/model"
	"aki/bff/internal/validation"
)

type apiResponse struct {
	Data    any             `json:"data"`
	Meta    *model.PageMeta `json:"meta,omitempty"`
	Message string          `json:"message,omitempty"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   []any  `json:"details,omitempty"`
	TraceID   string `json:"trace_id"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, apiResponse{Data: data, Message: message})
}

func writePage[T any](w http.ResponseWriter, page model.Page[T], message string) {
	meta := page.Meta
	writeJSON(w, http.StatusOK, apiResponse{Data: page.Items, Meta: &meta, Message: message})
}

// writeError renders err as the public error body. Anything that is not an
// *apperr.Error becomes a 500 without leaking its text.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	traceID := logging.CorrelationIDFromContext(r.Context())
	if traceID == "" {
		traceID = appErr.TraceID
	}

	log := logging.Ctx(r.Context())
	if appErr.Status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", appErr.Status).Str("path", r.URL.Path).Msg("request failed")
	} else {
		log.Debug().Err(err).Int("status", appErr.Status).Str("path", r.URL.Path).Msg("request rejected")
	}

	writeJSON(w, appErr.Status, errorBody{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		TraceID:   traceID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// bind decodes the JSON body into out and runs its validation tags.
func bind(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.BadRequest("Request body is required")
		}
		return apperr.BadRequest("Invalid JSON body").Wrap(err)
	}
	return validation.Struct(out)
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("Invalid " + name)
	}
	return id, nil
}

func pathString(r *http.Request, name string) (string, error) {
	value := strings.TrimSpace(chi.URLParam(r, name))
	if value == "" {
		return "", apperr.BadRequest("Invalid " + name)
	}
	return value, nil
}

// queryFilters copies the listed query parameters that are present. page and
// size fall back to 1 and the given default size.
func queryFilters(r *http.Request, defaultSize int, keys ...string) (clients.Filters, error) {
	query := r.URL.Query()
	filters := clients.Filters{"page": 1, "size": defaultSize}
	for _, key := range []string{"page", "size"} {
		raw := query.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, apperr.BadRequest("Invalid " + key)
		}
		filters[key] = n
	}
	for _, key := range keys {
		if value := strings.TrimSpace(query.Get(key)); value != "" {
			filters[key] = value
		}
	}
	return filters, nil
}
