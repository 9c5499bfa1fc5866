package transfer

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medhq/hms-core/internal/handler"
	"github.com/medhq/hms-core/internal/middleware"
	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/service/transfer"
)

type Handler struct {
	service *transfer.Service
}

func NewHandler(service *transfer.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	transfers := r.Group("/pharmacy/transfers")
	{
		transfers.POST("", h.Create)
		transfers.GET("", h.List)
		transfers.GET("/stats", h.Stats)
		transfers.GET("/:id", h.Get)
		transfers.POST("/:id/approve", h.Approve)
		transfers.POST("/:id/execute", h.Execute)
		transfers.POST("/:id/cancel", h.Cancel)
		transfers.POST("/:id/reject", h.Reject)
		transfers.POST("/deliver", h.DeliverInTransit)
	}
}

type createTransferRequest struct {
	Kind         string  `json:"kind" binding:"required"`
	MedicationID string  `json:"medication_id" binding:"required"`
	FromID       string  `json:"from_id" binding:"required"`
	ToID         string  `json:"to_id" binding:"required"`
	Quantity     int     `json:"quantity" binding:"required"`
	BatchNumber  *string `json:"batch_number"`
	Notes        string  `json:"notes"`
}

func (h *Handler) Create(c *gin.Context) {
	var req createTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	kind, ok := parseKind(req.Kind)
	if !ok {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid transfer kind"))
		return
	}
	medicationID, err := uuid.Parse(req.MedicationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid medication ID"))
		return
	}
	fromID, err := uuid.Parse(req.FromID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid source ID"))
		return
	}
	toID, err := uuid.Parse(req.ToID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid destination ID"))
		return
	}

	created, err := h.service.Create(c.Request.Context(), &transfer.CreateRequest{
		Kind:         kind,
		MedicationID: medicationID,
		FromID:       fromID,
		ToID:         toID,
		Quantity:     req.Quantity,
		BatchNumber:  req.BatchNumber,
		RequestedBy:  middleware.CurrentUserID(c),
		Notes:        req.Notes,
	})
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) List(c *gin.Context) {
	var filter model.TransferFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if filter.Kind == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("kind is required"))
		return
	}
	if _, ok := parseKind(string(filter.Kind)); !ok {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid transfer kind"))
		return
	}

	transfers, err := h.service.List(c.Request.Context(), &filter)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(transfers))
}

func (h *Handler) Stats(c *gin.Context) {
	kind, ok := kindFromQuery(c)
	if !ok {
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), kind)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(stats))
}

func (h *Handler) Get(c *gin.Context) {
	kind, id, ok := kindAndID(c)
	if !ok {
		return
	}

	t, err := h.service.Get(c.Request.Context(), kind, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(t))
}

func (h *Handler) Approve(c *gin.Context) {
	kind, id, ok := kindAndID(c)
	if !ok {
		return
	}

	t, err := h.service.Approve(c.Request.Context(), kind, id, middleware.CurrentUserID(c))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(t))
}

func (h *Handler) Execute(c *gin.Context) {
	kind, id, ok := kindAndID(c)
	if !ok {
		return
	}

	t, err := h.service.Execute(c.Request.Context(), kind, id, middleware.CurrentUserID(c))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(t))
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Cancel(c *gin.Context) {
	kind, id, ok := kindAndID(c)
	if !ok {
		return
	}
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)

	admin := false
	if user := middleware.CurrentUser(c); user != nil {
		admin = user.IsSuperuser
	}
	t, err := h.service.Cancel(c.Request.Context(), kind, id, middleware.CurrentUserID(c), admin, req.Reason)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(t))
}

func (h *Handler) Reject(c *gin.Context) {
	kind, id, ok := kindAndID(c)
	if !ok {
		return
	}
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)

	t, err := h.service.Reject(c.Request.Context(), kind, id, middleware.CurrentUserID(c), req.Reason)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(t))
}

// DeliverInTransit completes every in-transit transfer of a kind in
// one sweep, for end-of-day delivery confirmation.
func (h *Handler) DeliverInTransit(c *gin.Context) {
	kind, ok := kindFromQuery(c)
	if !ok {
		return
	}

	delivered, err := h.service.DeliverInTransit(c.Request.Context(), kind, middleware.CurrentUserID(c))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"delivered": delivered}))
}

func kindAndID(c *gin.Context) (model.TransferKind, uuid.UUID, bool) {
	kind, ok := kindFromQuery(c)
	if !ok {
		return "", uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid transfer ID"))
		return "", uuid.Nil, false
	}
	return kind, id, true
}

func kindFromQuery(c *gin.Context) (model.TransferKind, bool) {
	kind, ok := parseKind(c.Query("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid transfer kind"))
		return "", false
	}
	return kind, true
}

func parseKind(raw string) (model.TransferKind, bool) {
	switch model.TransferKind(raw) {
	case model.TransferBulkToActive, model.TransferActiveToDisp, model.TransferInterDispensary:
		return model.TransferKind(raw), true
	}
	return "", false
}
