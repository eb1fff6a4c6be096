package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Error codes carried in error responses. Clients map them back to the
// store's sentinel errors.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeEntityTypeNotFound = "ENTITY_TYPE_NOT_FOUND"
	CodeInvalidName        = "INVALID_NAME"
	CodeInvalidSlug        = "INVALID_SLUG"
	CodeDuplicateSlug      = "DUPLICATE_SLUG"
	CodeUnknownAttribute   = "UNKNOWN_ATTRIBUTE"
	CodeInvalidValue       = "INVALID_VALUE"
	CodeInvalidRelation    = "INVALID_RELATION"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnavailable        = "UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// storeErrors maps store sentinels to status codes and error codes. The
// first match wins.
var storeErrors = []struct {
	err    error
	status int
	code   string
}{
	{types.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{types.ErrEntityTypeNotFound, http.StatusNotFound, CodeEntityTypeNotFound},
	{types.ErrInvalidName, http.StatusBadRequest, CodeInvalidName},
	{types.ErrInvalidSlug, http.StatusBadRequest, CodeInvalidSlug},
	{types.ErrDuplicateSlug, http.StatusConflict, CodeDuplicateSlug},
	{types.ErrUnknownAttribute, http.StatusBadRequest, CodeUnknownAttribute},
	{types.ErrInvalidValue, http.StatusBadRequest, CodeInvalidValue},
	{types.ErrInvalidRelation, http.StatusBadRequest, CodeInvalidRelation},
	{types.ErrDetached, http.StatusServiceUnavailable, CodeUnavailable},
}

// writeJSON marshals v as JSON and writes it with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encoding response failed", zap.Error(err))
	}
}

// writeError writes a structured JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// storeErrorToHTTP maps store errors to HTTP responses. Unrecognized errors
// are logged and reported as 500 without detail.
func (s *Server) storeErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range storeErrors {
		if errors.Is(err, m.err) {
			s.writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	s.logger.Error("internal error",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	s.writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
}

// decodeJSON decodes the request body into v. Bodies over maxBodyBytes are
// rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
