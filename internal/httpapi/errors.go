package httpapi

import (
	"errors"
	"net/http"

	"github.com/MarkoPoloResearchLab/collections/pkg/collection"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	codeInvalidPayload = "invalid_payload"
	codeInvalidID      = "invalid_id"
	codeConflict       = "conflict"
	codeLocked         = "locked"
	codeNotFound       = "not_found"
	codeUnprocessable  = "unreadable_spreadsheet"
	codeValidation     = "validation_failed"
	codeInternal       = "internal_error"
	codeTooLarge       = "payload_too_large"
)

// statusFor maps a service error onto an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, codeTooLarge
	case errors.Is(err, collection.ErrPeriodLocked):
		return http.StatusConflict, codeLocked
	case errors.Is(err, collection.ErrPeriodOverlap), errors.Is(err, collection.ErrDuplicateRecord):
		return http.StatusConflict, codeConflict
	case errors.Is(err, collection.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, collection.ErrParse):
		return http.StatusUnprocessableEntity, codeUnprocessable
	case errors.Is(err, collection.ErrValidation):
		return http.StatusBadRequest, codeValidation
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func (handler *httpHandler) writeError(ctx *gin.Context, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		fields := []zap.Field{zap.String("path", ctx.FullPath()), zap.Error(err)}
		var operationError collection.OperationError
		if errors.As(err, &operationError) {
			fields = append(fields, zap.String("operation", operationError.Operation()), zap.String("subject", operationError.Subject()), zap.String("code", operationError.Code()))
		}
		handler.logger.Error("request failed", fields...)
		message = "internal error"
	}
	ctx.JSON(status, errorResponse(code, message))
}
