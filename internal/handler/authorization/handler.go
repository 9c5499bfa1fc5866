package authorization

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medhq/hms-core/internal/handler"
	"github.com/medhq/hms-core/internal/middleware"
	"github.com/medhq/hms-core/internal/service/authorization"
)

type Handler struct {
	service *authorization.Service
}

func NewHandler(service *authorization.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	desk := r.Group("/desk-office")
	{
		codes := desk.Group("/authorization-codes")
		{
			codes.POST("", h.GenerateCode)
			codes.GET("", h.ListCodes)
			codes.POST("/:id/cancel", h.CancelCode)
			codes.POST("/use", h.UseCode)
			codes.GET("/validate/:code", h.ValidateCode)
		}
		desk.GET("/pending-authorizations", h.ListPending)
		desk.POST("/authorization-requests", h.CreateRequest)
		desk.GET("/authorization-status/:kind/:id", h.AuthorizationStatus)
	}
}

func (h *Handler) GenerateCode(c *gin.Context) {
	var req authorization.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	req.IssuedBy = middleware.CurrentUserID(c)

	code, err := h.service.GenerateCode(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(code))
}

func (h *Handler) ListCodes(c *gin.Context) {
	var patientID uuid.UUID
	if raw := c.Query("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
			return
		}
		patientID = id
	}

	codes, err := h.service.ListCodes(c.Request.Context(), patientID, c.Query("status"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(codes))
}

func (h *Handler) CancelCode(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid code ID"))
		return
	}

	if err := h.service.CancelCode(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

type useCodeRequest struct {
	Code   string          `json:"code" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) UseCode(c *gin.Context) {
	var req useCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	code, err := h.service.UseCode(c.Request.Context(), req.Code, req.Amount)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(code))
}

func (h *Handler) ValidateCode(c *gin.Context) {
	code, err := h.service.ValidateCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(code))
}

// CreateRequest flags a clinical record as waiting for desk office
// authorization.
func (h *Handler) CreateRequest(c *gin.Context) {
	var req authorization.RequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	req.RequestedBy = middleware.CurrentUserID(c)

	if err := h.service.CreateAuthorizationRequest(c.Request.Context(), &req); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(nil))
}

type authorizationStatusResponse struct {
	Status                string `json:"status"`
	RequiresAuthorization bool   `json:"requires_authorization"`
	Reason                string `json:"reason"`
}

// AuthorizationStatus reports the record's effective authorization
// state together with whether a code is still needed.
func (h *Handler) AuthorizationStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid record ID"))
		return
	}
	kind := c.Param("kind")

	status, err := h.service.GetAuthorizationStatus(c.Request.Context(), kind, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	required, reason, err := h.service.RequiresAuthorization(c.Request.Context(), kind, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(authorizationStatusResponse{
		Status:                status,
		RequiresAuthorization: required,
		Reason:                reason,
	}))
}

// ListPending feeds the desk office dashboard with NHIA records still
// waiting for an authorization code.
func (h *Handler) ListPending(c *gin.Context) {
	pending, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(pending))
}
