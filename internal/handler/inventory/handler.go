package inventory

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medhq/hms-core/internal/handler"
	"github.com/medhq/hms-core/internal/middleware"
	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/service/inventory"
)

type Handler struct {
	service *inventory.Service
}

func NewHandler(service *inventory.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	pharmacy := r.Group("/pharmacy")
	{
		pharmacy.POST("/purchases", h.ReceivePurchase)
		pharmacy.GET("/stock", h.StockLevels)
		pharmacy.GET("/stock/low", h.LowStock)
		pharmacy.GET("/stock/expiring", h.ExpiringLots)
		pharmacy.GET("/stock/search", h.SearchStock)
		pharmacy.GET("/inventory/alerts", h.InventoryAlerts)
	}
}

type receivePurchaseRequest struct {
	BulkStoreID  string          `json:"bulk_store_id" binding:"required"`
	MedicationID string          `json:"medication_id" binding:"required"`
	BatchNumber  string          `json:"batch_number" binding:"required"`
	Quantity     int             `json:"quantity" binding:"required"`
	ExpiryDate   string          `json:"expiry_date" binding:"required"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	SupplierID   *string         `json:"supplier_id"`
}

func (h *Handler) ReceivePurchase(c *gin.Context) {
	var req receivePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	storeID, err := uuid.Parse(req.BulkStoreID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid bulk store ID"))
		return
	}
	medicationID, err := uuid.Parse(req.MedicationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid medication ID"))
		return
	}
	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("expiry_date must be YYYY-MM-DD"))
		return
	}
	var supplierID *uuid.UUID
	if req.SupplierID != nil {
		id, err := uuid.Parse(*req.SupplierID)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid supplier ID"))
			return
		}
		supplierID = &id
	}

	receipt := &model.PurchaseReceipt{
		BulkStoreID:  storeID,
		MedicationID: medicationID,
		BatchNumber:  req.BatchNumber,
		Quantity:     req.Quantity,
		ExpiryDate:   expiry,
		UnitCost:     req.UnitCost,
		SupplierID:   supplierID,
		ReceivedBy:   middleware.CurrentUserID(c),
	}
	if err := h.service.ReceivePurchase(c.Request.Context(), receipt); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(receipt))
}

func (h *Handler) StockLevels(c *gin.Context) {
	tier, locationID, ok := h.tierAndLocation(c)
	if !ok {
		return
	}

	levels, err := h.service.StockLevels(c.Request.Context(), tier, locationID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(levels))
}

func (h *Handler) LowStock(c *gin.Context) {
	tier, locationID, ok := h.tierAndLocation(c)
	if !ok {
		return
	}

	levels, err := h.service.LowStock(c.Request.Context(), tier, locationID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(levels))
}

func (h *Handler) ExpiringLots(c *gin.Context) {
	days := 90
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("days must be a positive integer"))
			return
		}
		days = parsed
	}

	lots, err := h.service.ExpiringLots(c.Request.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(lots))
}

type inventoryAlerts struct {
	LowStock []*model.StockLevel  `json:"low_stock"`
	Expiring []*model.ExpiringLot `json:"expiring"`
}

// InventoryAlerts combines the low-stock and expiring-lot reports into
// the single feed the pharmacy dashboard polls.
func (h *Handler) InventoryAlerts(c *gin.Context) {
	tier, locationID, ok := h.tierAndLocation(c)
	if !ok {
		return
	}

	low, err := h.service.LowStock(c.Request.Context(), tier, locationID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	expiring, err := h.service.ExpiringLots(c.Request.Context(), 90*24*time.Hour)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(inventoryAlerts{
		LowStock: low,
		Expiring: expiring,
	}))
}

func (h *Handler) SearchStock(c *gin.Context) {
	rows, err := h.service.SearchStock(c.Request.Context(), c.Query("q"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(rows))
}

// tierAndLocation resolves the stock tier and location from the query.
// Pharmacists without an explicit location fall back to the dispensary
// the scope middleware resolved.
func (h *Handler) tierAndLocation(c *gin.Context) (string, uuid.UUID, bool) {
	tier := c.DefaultQuery("tier", model.TierDispensary)
	switch tier {
	case model.TierBulkStore, model.TierActiveStore, model.TierDispensary:
	default:
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid tier"))
		return "", uuid.Nil, false
	}

	raw := c.Query("location_id")
	if raw == "" {
		if scoped, ok := c.Get(middleware.ContextDispensaryID); ok && tier == model.TierDispensary {
			return tier, scoped.(uuid.UUID), true
		}
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("location_id is required"))
		return "", uuid.Nil, false
	}
	locationID, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid location ID"))
		return "", uuid.Nil, false
	}
	return tier, locationID, true
}
