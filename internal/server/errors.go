package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"github.com/nao1215/fairhire/internal/model"
)

// APIError is the body of every error response.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeInvalidConfiguration = "INVALID_CONFIGURATION"
	ErrCodeDataUnavailable      = "DATA_UNAVAILABLE"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeMethodNotAllowed     = "METHOD_NOT_ALLOWED"
	ErrCodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	ErrCodeUnsupportedMedia     = "UNSUPPORTED_MEDIA_TYPE"
	ErrCodeCollaboratorFailure  = "COLLABORATOR_FAILURE"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) //nolint:errcheck // the client may be gone
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, APIError{
		Error:   http.StatusText(status),
		Code:    code,
		Message: message,
	})
}

// classify maps an audit error to a status, code and client-safe message.
func classify(err error) (int, string, string) {
	var me *model.Error
	if !errors.As(err, &me) {
		return http.StatusInternalServerError, ErrCodeInternalError, "internal server error"
	}

	switch me.Kind {
	case model.KindConfigurationInvalid:
		return http.StatusBadRequest, ErrCodeInvalidConfiguration, me.Op
	case model.KindDataUnavailable:
		msg := "the dataset could not be read"
		// Path errors name spool files on the server.
		var pe *fs.PathError
		if me.Err != nil && !errors.As(me.Err, &pe) {
			msg += ": " + me.Err.Error()
		}
		return http.StatusUnprocessableEntity, ErrCodeDataUnavailable, msg
	case model.KindRecordNotFound:
		return http.StatusNotFound, ErrCodeNotFound, "audit not found"
	case model.KindCollaboratorFailure:
		return http.StatusInternalServerError, ErrCodeCollaboratorFailure, "the audit failed during " + me.Op
	default:
		return http.StatusInternalServerError, ErrCodeInternalError, "internal server error"
	}
}

func (s *Server) respondAuditError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	level := s.logger.Warn
	if status >= http.StatusInternalServerError {
		level = s.logger.Error
	}
	level("audit request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"kind", model.KindOf(err).String(),
		"error", err,
	)
	respondError(w, status, code, message)
}
