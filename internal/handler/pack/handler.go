package pack

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medhq/hms-core/internal/handler"
	"github.com/medhq/hms-core/internal/middleware"
	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/service/pack"
)

type Handler struct {
	service *pack.Service
}

func NewHandler(service *pack.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	packs := r.Group("/pharmacy/packs")
	{
		packs.POST("", h.CreatePack)
		packs.GET("", h.ListPacks)
		packs.GET("/:id", h.GetPack)
	}

	orders := r.Group("/pharmacy/pack-orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.ListOrders)
		orders.POST("/:id/approve", h.ApproveOrder)
		orders.POST("/:id/process", h.ProcessOrder)
		orders.POST("/:id/dispense", h.DispenseOrder)
		orders.POST("/:id/cancel", h.CancelOrder)
	}
}

type createPackItemRequest struct {
	MedicationID      string `json:"medication_id" binding:"required"`
	Quantity          int    `json:"quantity" binding:"required"`
	ItemType          string `json:"item_type"`
	IsCritical        bool   `json:"is_critical"`
	IsOptional        bool   `json:"is_optional"`
	UsageInstructions string `json:"usage_instructions"`
}

type createPackRequest struct {
	Name             string                  `json:"name" binding:"required"`
	PackType         string                  `json:"pack_type" binding:"required"`
	ProcedureSubtype string                  `json:"procedure_subtype"`
	Description      string                  `json:"description"`
	RiskLevel        string                  `json:"risk_level"`
	TotalCost        decimal.Decimal         `json:"total_cost"`
	RequiresApproval bool                    `json:"requires_approval"`
	Items            []createPackItemRequest `json:"items" binding:"required"`
}

func (h *Handler) CreatePack(c *gin.Context) {
	var req createPackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	p := &model.MedicalPack{
		Name:             req.Name,
		PackType:         req.PackType,
		ProcedureSubtype: req.ProcedureSubtype,
		Description:      req.Description,
		RiskLevel:        req.RiskLevel,
		TotalCost:        req.TotalCost,
		RequiresApproval: req.RequiresApproval,
		IsActive:         true,
	}
	items := make([]*model.PackItem, 0, len(req.Items))
	for _, item := range req.Items {
		medicationID, err := uuid.Parse(item.MedicationID)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid medication ID"))
			return
		}
		itemType := item.ItemType
		if itemType == "" {
			itemType = model.PackItemMedication
		}
		items = append(items, &model.PackItem{
			MedicationID:      medicationID,
			Quantity:          item.Quantity,
			ItemType:          itemType,
			IsCritical:        item.IsCritical,
			IsOptional:        item.IsOptional,
			UsageInstructions: item.UsageInstructions,
		})
	}

	if err := h.service.CreatePack(c.Request.Context(), p, items); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(p))
}

func (h *Handler) ListPacks(c *gin.Context) {
	packs, err := h.service.ListPacks(c.Request.Context(), c.Query("pack_type"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(packs))
}

func (h *Handler) GetPack(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid pack ID"))
		return
	}

	p, err := h.service.GetPackWithItems(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

type createOrderRequest struct {
	PackID        string  `json:"pack_id" binding:"required"`
	PatientID     string  `json:"patient_id" binding:"required"`
	DispensaryID  *string `json:"dispensary_id"`
	SurgeryID     *string `json:"surgery_id"`
	LaborRecordID *string `json:"labor_record_id"`
	ScheduledDate *string `json:"scheduled_date"`
	Notes         string  `json:"notes"`
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	packID, err := uuid.Parse(req.PackID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid pack ID"))
		return
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	order := &model.PackOrder{
		PackID:    packID,
		PatientID: patientID,
		OrderedBy: middleware.CurrentUserID(c),
		Notes:     req.Notes,
	}
	if req.DispensaryID != nil {
		id, err := uuid.Parse(*req.DispensaryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid dispensary ID"))
			return
		}
		order.DispensaryID = id
	}
	if req.SurgeryID != nil {
		id, err := uuid.Parse(*req.SurgeryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid surgery ID"))
			return
		}
		order.SurgeryID = &id
	}
	if req.LaborRecordID != nil {
		id, err := uuid.Parse(*req.LaborRecordID)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid labor record ID"))
			return
		}
		order.LaborRecordID = &id
	}
	if req.ScheduledDate != nil {
		scheduled, err := time.Parse("2006-01-02", *req.ScheduledDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("scheduled_date must be YYYY-MM-DD"))
			return
		}
		order.ScheduledDate = &scheduled
	}

	if err := h.service.CreateOrder(c.Request.Context(), order); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(order))
}

func (h *Handler) ListOrders(c *gin.Context) {
	var dispensaryID uuid.UUID
	if raw := c.Query("dispensary_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid dispensary ID"))
			return
		}
		dispensaryID = id
	} else if scoped, ok := c.Get(middleware.ContextDispensaryID); ok {
		dispensaryID = scoped.(uuid.UUID)
	}

	orders, err := h.service.ListOrders(c.Request.Context(), c.Query("status"), dispensaryID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(orders))
}

func (h *Handler) ApproveOrder(c *gin.Context) {
	h.transition(c, h.service.ApproveOrder)
}

func (h *Handler) ProcessOrder(c *gin.Context) {
	h.transition(c, h.service.ProcessOrder)
}

func (h *Handler) DispenseOrder(c *gin.Context) {
	h.transition(c, h.service.DispenseOrder)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid order ID"))
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	order, err := h.service.CancelOrder(c.Request.Context(), id, req.Reason)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(order))
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, orderID, userID uuid.UUID) (*model.PackOrder, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid order ID"))
		return
	}

	order, err := fn(c.Request.Context(), id, middleware.CurrentUserID(c))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(order))
}
