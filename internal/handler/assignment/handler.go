package assignment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medhq/hms-core/internal/handler"
	"github.com/medhq/hms-core/internal/middleware"
	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/repository"
	apperrors "github.com/medhq/hms-core/pkg/errors"
)

// Handler manages dispensaries and pharmacist assignments. Both live
// behind the pharmacy admin paths.
type Handler struct {
	assignments repository.AssignmentRepository
	pharmacy    repository.PharmacyRepository
	users       repository.UserRepository
}

func NewHandler(assignments repository.AssignmentRepository, pharmacy repository.PharmacyRepository, users repository.UserRepository) *Handler {
	return &Handler{assignments: assignments, pharmacy: pharmacy, users: users}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	dispensaries := r.Group("/pharmacy/dispensaries")
	{
		dispensaries.POST("", h.CreateDispensary)
		dispensaries.GET("", h.ListDispensaries)
		dispensaries.GET("/:id/assignments", h.ListDispensaryAssignments)
	}

	assignments := r.Group("/pharmacy/assignments")
	{
		assignments.POST("", h.AssignPharmacist)
		assignments.DELETE("/:id", h.Deactivate)
		assignments.GET("/users/:id", h.ListUserAssignments)
	}
}

type createDispensaryRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
}

func (h *Handler) CreateDispensary(c *gin.Context) {
	var req createDispensaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	d := &model.Dispensary{
		Name:     req.Name,
		Location: req.Location,
		IsActive: true,
	}
	if err := h.pharmacy.CreateDispensary(c.Request.Context(), d); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(d))
}

func (h *Handler) ListDispensaries(c *gin.Context) {
	activeOnly := c.DefaultQuery("active", "true") == "true"
	dispensaries, err := h.pharmacy.ListDispensaries(c.Request.Context(), activeOnly)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(dispensaries))
}

func (h *Handler) ListDispensaryAssignments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid dispensary ID"))
		return
	}

	assignments, err := h.assignments.ListForDispensary(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(assignments))
}

type assignRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	DispensaryID string `json:"dispensary_id" binding:"required"`
	Role         string `json:"role"`
}

func (h *Handler) AssignPharmacist(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
		return
	}
	dispensaryID, err := uuid.Parse(req.DispensaryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid dispensary ID"))
		return
	}

	ctx := c.Request.Context()
	if _, err := h.users.Get(ctx, userID); err != nil {
		handler.Error(c, err)
		return
	}
	if _, err := h.pharmacy.GetDispensary(ctx, dispensaryID); err != nil {
		handler.Error(c, err)
		return
	}
	if existing, err := h.assignments.GetActive(ctx, userID, dispensaryID); err == nil && existing != nil {
		handler.Error(c, apperrors.NewConflict("pharmacist is already assigned to this dispensary"))
		return
	} else if err != nil && !apperrors.IsNotFound(err) {
		handler.Error(c, err)
		return
	}

	role := req.Role
	if role == "" {
		role = "pharmacist"
	}
	var assignedBy *uuid.UUID
	if id := middleware.CurrentUserID(c); id != uuid.Nil {
		assignedBy = &id
	}
	a := &model.PharmacistAssignment{
		UserID:       userID,
		DispensaryID: dispensaryID,
		Role:         role,
		AssignedBy:   assignedBy,
		IsActive:     true,
	}
	if err := h.assignments.Create(ctx, a); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(a))
}

func (h *Handler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid assignment ID"))
		return
	}

	if err := h.assignments.Deactivate(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ListUserAssignments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
		return
	}

	assignments, err := h.assignments.ListForUser(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(assignments))
}
