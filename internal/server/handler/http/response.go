package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/HanziDeck/internal/apperr"
	"github.com/atinyakov/HanziDeck/internal/logger"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
	Timeout bool     `json:"timeout,omitempty"`
}

type listMeta struct {
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	Total      int      `json:"total"`
	TotalPages int      `json:"totalPages"`
	Topics     []string `json:"topics,omitempty"`
	Levels     []string `json:"levels,omitempty"`
}

type listResponse struct {
	Data any      `json:"data"`
	Meta listMeta `json:"meta"`
}

type dataResponse struct {
	Data any `json:"data"`
}

var successBody = map[string]bool{"success": true}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and JSON body. Errors without a
// domain kind are logged together with the redacted request fields and
// answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, fields map[string]any) {
	var e *apperr.Error
	if !errors.As(err, &e) || e.Kind == apperr.KindInternal {
		if log != nil {
			log.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Any("fields", logger.Redact(fields)),
				zap.Error(err),
			)
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
		return
	}

	body := errorBody{Error: e.Message, Missing: e.Missing, Timeout: e.Timeout}
	if e.Kind == apperr.KindMedia || body.Error == "" {
		body.Error = e.Error()
	}
	writeJSON(w, apperr.HTTPStatus(err), body)
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return apperr.Invalid("Invalid JSON body")
	}
	return nil
}
