package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/medhq/hms-core/pkg/errors"
)

func statusFor(err error) int {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Error(c, err)
	return w.Code
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"insufficient stock", &apperrors.InsufficientStockError{Medication: "amoxicillin", Available: 2, Required: 5}, http.StatusConflict},
		{"invalid transition", &apperrors.InvalidTransitionError{From: "completed", To: "cancelled"}, http.StatusConflict},
		{"duplicate code", &apperrors.DuplicateCodeError{Code: "AUTH-1234"}, http.StatusConflict},
		{"same location", &apperrors.SameLocationError{Location: "main dispensary"}, http.StatusBadRequest},
		{"circular hierarchy", &apperrors.CircularHierarchyError{Role: "nurse"}, http.StatusBadRequest},
		{"unsupported record", &apperrors.UnsupportedRecordError{Kind: "invoice"}, http.StatusBadRequest},
		{"permission denied", &apperrors.PermissionDeniedError{Permission: "pharmacy.dispense"}, http.StatusForbidden},
		{"amount mismatch", &apperrors.AmountMismatchError{Expected: decimal.NewFromInt(2000), Got: decimal.NewFromInt(500)}, http.StatusBadRequest},
		{"not found", apperrors.NotFound("patient"), http.StatusNotFound},
		{"wrapped domain error", fmt.Errorf("failed to save code: %w", &apperrors.DuplicateCodeError{Code: "AUTH-1234"}), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
