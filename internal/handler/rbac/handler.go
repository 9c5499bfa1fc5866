package rbac

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medhq/hms-core/internal/handler"
	"github.com/medhq/hms-core/internal/middleware"
	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/service/rbac"
)

type Handler struct {
	service *rbac.Service
	access  *middleware.AccessMiddleware
}

func NewHandler(service *rbac.Service, access *middleware.AccessMiddleware) *Handler {
	return &Handler{service: service, access: access}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	rbac := r.Group("/rbac")
	{
		roles := rbac.Group("/roles")
		{
			roles.POST("", h.CreateRole)
			roles.GET("", h.ListRoles)
			roles.PUT("/:id/parent", h.SetRoleParent)
		}

		users := rbac.Group("/users")
		{
			users.GET("/:id/roles", h.GetUserRoles)
			users.GET("/:id/permissions", h.GetUserPermissions)
			users.POST("/:id/roles", h.AssignRole)
			users.DELETE("/:id/roles/:role", h.RevokeRole)
		}

		rbac.GET("/accessible-modules", h.AccessibleModules)
	}
}

func (h *Handler) CreateRole(c *gin.Context) {
	var req model.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	role, err := h.service.CreateRole(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(role))
}

func (h *Handler) ListRoles(c *gin.Context) {
	roles, err := h.service.ListRolesWithPermissions(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(roles))
}

type setParentRequest struct {
	ParentID *string `json:"parent_id"`
}

func (h *Handler) SetRoleParent(c *gin.Context) {
	roleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid role ID"))
		return
	}

	var req setParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	var parentID *uuid.UUID
	if req.ParentID != nil {
		id, err := uuid.Parse(*req.ParentID)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid parent ID"))
			return
		}
		parentID = &id
	}

	if err := h.service.SetRoleParent(c.Request.Context(), roleID, parentID); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) GetUserRoles(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
		return
	}

	roles, err := h.service.GetUserRoles(c.Request.Context(), userID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(roles))
}

func (h *Handler) GetUserPermissions(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
		return
	}

	perms, err := h.service.EffectivePermissions(c.Request.Context(), userID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	codenames := make([]string, 0, len(perms))
	for cn := range perms {
		codenames = append(codenames, cn)
	}
	sort.Strings(codenames)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(codenames))
}

func (h *Handler) AssignRole(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
		return
	}

	var req model.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	var assignedBy *uuid.UUID
	if id := middleware.CurrentUserID(c); id != uuid.Nil {
		assignedBy = &id
	}
	if err := h.service.AssignRole(c.Request.Context(), userID, req.RoleName, assignedBy); err != nil {
		handler.Error(c, err)
		return
	}
	h.invalidateRoles(userID)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) RevokeRole(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
		return
	}

	if err := h.service.RevokeRole(c.Request.Context(), userID, c.Param("role")); err != nil {
		handler.Error(c, err)
		return
	}
	h.invalidateRoles(userID)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

// AccessibleModules powers the sidebar: the module groups the caller
// may see, derived from their effective permissions.
func (h *Handler) AccessibleModules(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("Authentication required"))
		return
	}

	modules, err := h.service.AccessibleModules(c.Request.Context(), userID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(modules))
}

func (h *Handler) invalidateRoles(userID uuid.UUID) {
	if h.access != nil {
		h.access.InvalidateRoles(userID.String())
	}
}
