package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind    apperrors.Kind `json:"kind"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
}

func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindForbidden:
		return http.StatusForbidden
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindUnauth:
		return http.StatusUnauthorized
	case apperrors.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes the error body and stops the handler chain.
// Internal errors never leak their message.
func abortWithError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	if kind == apperrors.KindInternal && errors.Is(err, context.DeadlineExceeded) {
		kind = apperrors.KindTimeout
	}
	detail := ErrorDetail{Kind: kind, Message: err.Error()}

	var verr *apperrors.ValidationError
	if errors.As(err, &verr) {
		detail.Field = verr.Field
		detail.Message = verr.Message
	}
	if kind == apperrors.KindInternal {
		logger.FromContext(c.Request.Context()).Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		detail.Message = "internal error"
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(kind), ErrorBody{Error: detail})
}

// badRequest reports an unparseable body or query.
func badRequest(c *gin.Context, err error) {
	abortWithError(c, &apperrors.ValidationError{Message: err.Error()})
}
