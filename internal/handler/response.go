package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/medhq/hms-core/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// Error writes err with the HTTP status its category maps to. Domain
// errors from the pharmacy engine surface as conflicts or bad
// requests; anything unclassified is a 500 with the message hidden.
func Error(c *gin.Context, err error) {
	var (
		insufficient  *apperrors.InsufficientStockError
		transition    *apperrors.InvalidTransitionError
		sameLocation  *apperrors.SameLocationError
		capacity      *apperrors.CapacityExceededError
		duplicateCode *apperrors.DuplicateCodeError
		circular      *apperrors.CircularHierarchyError
		unsupported   *apperrors.UnsupportedRecordError
		denied        *apperrors.PermissionDeniedError
		mismatch      *apperrors.AmountMismatchError
	)
	switch {
	case errors.As(err, &insufficient), errors.As(err, &capacity), errors.As(err, &transition), errors.As(err, &duplicateCode):
		c.JSON(http.StatusConflict, NewErrorResponse(err.Error()))
		return
	case errors.As(err, &sameLocation), errors.As(err, &circular), errors.As(err, &unsupported), errors.As(err, &mismatch):
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	case errors.As(err, &denied):
		c.JSON(http.StatusForbidden, NewErrorResponse(err.Error()))
		return
	}

	switch apperrors.CodeOf(err) {
	case apperrors.ErrNotFound:
		c.JSON(http.StatusNotFound, NewErrorResponse(err.Error()))
	case apperrors.ErrBadRequest:
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
	case apperrors.ErrUnauthorized:
		c.JSON(http.StatusUnauthorized, NewErrorResponse(err.Error()))
	case apperrors.ErrForbidden:
		c.JSON(http.StatusForbidden, NewErrorResponse(err.Error()))
	case apperrors.ErrConflict:
		c.JSON(http.StatusConflict, NewErrorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
	}
}
