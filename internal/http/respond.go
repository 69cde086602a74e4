package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/book-review-api/internal/repository"
	"github.com/Clark-Hu/book-review-api/internal/service"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// optional records whether a JSON key was present, and its value unless it
// was null.
type optional[T any] struct {
	Set   bool
	Value *T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// ratingLiteral keeps a rating as the literal text the client sent. A JSON
// string is unquoted and any other token is kept verbatim; the rating parser
// rejects whatever is off the scale.
type ratingLiteral struct {
	Set   bool
	Value *string
}

func (r *ratingLiteral) UnmarshalJSON(b []byte) error {
	r.Set = true
	raw := bytes.TrimSpace(b)
	if bytes.Equal(raw, []byte("null")) {
		r.Value = nil
		return nil
	}
	literal := string(raw)
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &literal); err != nil {
			return err
		}
	}
	r.Value = &literal
	return nil
}

func literalOf(r ratingLiteral) *string {
	return r.Value
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{Code: code, Message: message})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError), errors.Is(err, io.ErrUnexpectedEOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Request body too large")
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

// respondServiceError maps the error taxonomy onto HTTP statuses.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrRatingOutOfRange),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidFilter):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, service.ErrResourceNotFound), errors.Is(err, service.ErrCommentNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrDuplicateComment),
		errors.Is(err, service.ErrDuplicateISBN),
		errors.Is(err, service.ErrISBNHeldByDeleted):
		s.respondError(w, http.StatusConflict, "CONFLICT", err.Error())
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return id, nil
}

// pageFromQuery reads limit and cursor, clamping limit to the configured
// maximum.
func (s *Server) pageFromQuery(r *http.Request) (repository.Page, error) {
	query := r.URL.Query()
	page := repository.Page{Limit: s.cfg.PageSizeDefault}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil || limit <= 0 {
			return page, fmt.Errorf("invalid limit value")
		}
		page.Limit = limit
	}
	if s.cfg.PageSizeMax > 0 && page.Limit > s.cfg.PageSizeMax {
		page.Limit = s.cfg.PageSizeMax
	}
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err := repository.DecodeCursor(val)
		if err != nil {
			return page, fmt.Errorf("invalid cursor")
		}
		page.Cursor = cursor
	}
	return page, nil
}

func hardDelete(r *http.Request) bool {
	hard, _ := strconv.ParseBool(r.URL.Query().Get("hard"))
	return hard
}
