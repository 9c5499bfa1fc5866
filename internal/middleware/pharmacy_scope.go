package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medhq/hms-core/internal/catalog"
	"github.com/medhq/hms-core/internal/handler"
	"github.com/medhq/hms-core/internal/repository"
	"github.com/medhq/hms-core/internal/service/rbac"
)

// Pharmacy paths only administrators may touch, even with the
// pharmacist role.
var pharmacyAdminPaths = []string{
	"/pharmacy/dispensaries",
	"/pharmacy/assignments",
	"/api/v1/pharmacy/dispensaries",
	"/api/v1/pharmacy/assignments",
}

// PharmacyScopeMiddleware pins pharmacists to their assigned
// dispensary. Admins and non-pharmacists pass through.
type PharmacyScopeMiddleware struct {
	rbac        *rbac.Service
	assignments repository.AssignmentRepository
	logger      zerolog.Logger
}

func NewPharmacyScopeMiddleware(rbacSvc *rbac.Service, assignments repository.AssignmentRepository, logger zerolog.Logger) *PharmacyScopeMiddleware {
	return &PharmacyScopeMiddleware{rbac: rbacSvc, assignments: assignments, logger: logger}
}

func (m *PharmacyScopeMiddleware) Enforce() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !isPharmacyPath(path) {
			c.Next()
			return
		}
		user := CurrentUser(c)
		if user == nil || user.IsSuperuser {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		isPharmacist, err := m.rbac.InRole(ctx, user.ID, catalog.RolePharmacist)
		if err != nil || !isPharmacist {
			c.Next()
			return
		}
		isAdmin, err := m.rbac.InRole(ctx, user.ID, catalog.RoleAdmin)
		if err == nil && isAdmin {
			c.Next()
			return
		}

		for _, adminPath := range pharmacyAdminPaths {
			if strings.HasPrefix(path, adminPath) {
				c.JSON(http.StatusForbidden, handler.NewErrorResponse("administrator access required"))
				c.Abort()
				return
			}
		}

		assignments, err := m.assignments.ListForUser(ctx, user.ID)
		if err != nil {
			m.logger.Error().Err(err).Str("username", user.Username).Msg("failed to load pharmacist assignments")
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to resolve dispensary assignment"))
			c.Abort()
			return
		}
		var assigned uuid.UUID
		for _, a := range assignments {
			if a.IsActive {
				assigned = a.DispensaryID
				break
			}
		}
		if assigned == uuid.Nil {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("no active dispensary assignment"))
			c.Abort()
			return
		}

		if requested := requestedDispensary(c); requested != uuid.Nil && requested != assigned {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("you are assigned to a different dispensary"))
			c.Abort()
			return
		}

		c.Set(ContextDispensaryID, assigned)
		c.Next()
	}
}

// requestedDispensary pulls a dispensary id from the query or the
// route parameters, when the request names one.
func requestedDispensary(c *gin.Context) uuid.UUID {
	for _, raw := range []string{c.Query("dispensary_id"), c.Param("dispensary_id")} {
		if raw == "" {
			continue
		}
		if id, err := uuid.Parse(raw); err == nil {
			return id
		}
	}
	return uuid.Nil
}

func isPharmacyPath(path string) bool {
	return strings.HasPrefix(path, "/pharmacy") ||
		strings.HasPrefix(path, "/api/v1/pharmacy")
}

// ContextDispensaryID carries the pharmacist's resolved dispensary.
const ContextDispensaryID = "dispensary_id"
