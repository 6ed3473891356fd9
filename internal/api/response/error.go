package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hamsalma/finance-site/internal/api/middleware"
	"github.com/hamsalma/finance-site/internal/pkg/apperr"
)

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error     string      `json:"error"`
	Kind      apperr.Kind `json:"kind"`
	Retryable bool        `json:"retryable"`
	RequestID string      `json:"request_id"`
}

// StatusOf maps an error kind to its HTTP status
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindDataUnavailable:
		return http.StatusBadGateway
	case apperr.KindInsufficientData:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error sends the classified error. Unclassified errors are reported as
// internal without their message.
func Error(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := StatusOf(kind)

	resp := ErrorResponse{
		Error:     apperr.Message(err),
		Kind:      kind,
		Retryable: apperr.IsRetryable(err),
		RequestID: middleware.GetRequestID(c),
	}
	if kind == apperr.KindInternal {
		resp.Error = "erreur interne du serveur"
	}

	event := log.Warn()
	if status >= 500 {
		event = log.Error()
	}
	event.
		Err(err).
		Str("request_id", resp.RequestID).
		Str("kind", string(kind)).
		Bool("retryable", resp.Retryable).
		Int("status", status).
		Msg("API error response")

	_ = c.Error(err)
	c.JSON(status, resp)
}

// BadRequest sends a 400 for a body that could not be decoded
func BadRequest(c *gin.Context, err error) {
	Error(c, apperr.InvalidInput(err, "requête invalide"))
}
