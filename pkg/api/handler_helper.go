package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dd0wney/cluso-chainviz/pkg/logging"
	"github.com/dd0wney/cluso-chainviz/pkg/validation"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// requestDecoder decodes and validates a request body. Calls chain; the
// first failure sticks.
type requestDecoder struct {
	r          *http.Request
	w          http.ResponseWriter
	server     *Server
	err        error
	statusCode int
}

func (s *Server) newRequestDecoder(w http.ResponseWriter, r *http.Request) *requestDecoder {
	return &requestDecoder{r: r, w: w, server: s}
}

// DecodeJSON decodes the body into v. An empty body is allowed when
// allowEmpty is set, leaving v untouched.
func (rd *requestDecoder) DecodeJSON(v any, allowEmpty bool) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	dec := json.NewDecoder(rd.r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && allowEmpty:
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rd.fail(http.StatusRequestEntityTooLarge, errors.New("request body too large"))
		} else {
			rd.fail(http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		}
	}
	return rd
}

// Validate runs struct validation on v
func (rd *requestDecoder) Validate(v any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	if err := validation.Struct(v); err != nil {
		rd.fail(http.StatusBadRequest, err)
	}
	return rd
}

func (rd *requestDecoder) fail(status int, err error) {
	rd.err = err
	rd.statusCode = status
}

// RespondError sends the error response and reports whether there was one
func (rd *requestDecoder) RespondError() bool {
	if rd.err == nil {
		return false
	}
	rd.server.respondError(rd.w, rd.statusCode, rd.err.Error())
	return true
}
