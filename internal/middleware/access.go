package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/medhq/hms-core/internal/catalog"
	"github.com/medhq/hms-core/internal/config"
	"github.com/medhq/hms-core/internal/handler"
	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/service/rbac"
	"github.com/medhq/hms-core/pkg/metrics"
)

// AccessMiddleware enforces the URL permission map on every request.
type AccessMiddleware struct {
	rbac      *rbac.Service
	cfg       config.AccessControlConfig
	roleCache *gocache.Cache
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewAccessMiddleware(rbacSvc *rbac.Service, cfg config.AccessControlConfig, m *metrics.Metrics, logger zerolog.Logger) *AccessMiddleware {
	ttl := cfg.RoleCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AccessMiddleware{
		rbac:      rbacSvc,
		cfg:       cfg,
		roleCache: gocache.New(ttl, 2*ttl),
		metrics:   m,
		logger:    logger,
	}
}

// Enforce runs the access pipeline: public URL short-circuit,
// authentication gate, superuser bypass, URL-to-permission resolution,
// then the permission check with a catalog role fallback.
func (m *AccessMiddleware) Enforce() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		if !m.cfg.Strict {
			m.observe("pass_disabled", start)
			c.Next()
			return
		}
		if catalog.IsPublicURL(path, m.cfg.PublicURLs) {
			m.observe("pass_public", start)
			c.Next()
			return
		}

		user := CurrentUser(c)
		if user == nil {
			m.observe("deny_unauthenticated", start)
			m.deny(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if user.IsSuperuser {
			m.observe("pass_superuser", start)
			c.Next()
			return
		}

		key, mapped := catalog.MatchURL(path)
		if !mapped {
			// Unmapped URLs pass for authenticated users while the
			// map is being completed.
			if m.cfg.AllowUnmappedAuthenticated {
				m.logger.Warn().Str("path", path).Msg("unmapped URL allowed for authenticated user")
				m.observe("pass_unmapped", start)
				c.Next()
				return
			}
			m.observe("deny_unmapped", start)
			m.denyForbidden(c, "<unmapped>")
			return
		}
		if key == catalog.AuthenticatedOnly {
			m.observe("pass_authenticated", start)
			c.Next()
			return
		}

		allowed, err := m.rbac.HasPermission(c.Request.Context(), user.ID, key)
		if err != nil {
			m.logger.Error().Err(err).Str("path", path).Msg("permission check failed")
			m.deny(c, http.StatusInternalServerError, "permission check failed")
			return
		}
		if !allowed {
			// Catalog fallback: a role may grant the key even when the
			// permission rows have not been synced yet.
			allowed = m.roleGrants(c, user, key)
		}

		if m.cfg.DebugPermissions {
			m.logger.Debug().
				Str("path", path).
				Str("username", user.Username).
				Str("permission", key).
				Bool("allowed", allowed).
				Msg("access decision")
		}

		if !allowed {
			m.observe("deny_permission", start)
			m.denyForbidden(c, key)
			return
		}
		m.observe("pass_permission", start)
		c.Next()
	}
}

// roleGrants consults the code-defined role catalog using the user's
// role names, cached per user for the configured TTL.
func (m *AccessMiddleware) roleGrants(c *gin.Context, user *model.User, key string) bool {
	roles, err := m.userRoles(c, user)
	if err != nil {
		m.logger.Error().Err(err).Str("username", user.Username).Msg("failed to load roles for catalog fallback")
		return false
	}
	for _, role := range roles {
		if catalog.RoleGrants(role, key) {
			return true
		}
	}
	return false
}

func (m *AccessMiddleware) userRoles(c *gin.Context, user *model.User) ([]string, error) {
	cacheKey := user.ID.String()
	if cached, ok := m.roleCache.Get(cacheKey); ok {
		return cached.([]string), nil
	}
	roles, err := m.rbac.GetUserRoles(c.Request.Context(), user.ID)
	if err != nil {
		return nil, err
	}
	m.roleCache.SetDefault(cacheKey, roles)
	return roles, nil
}

// InvalidateRoles drops a user's cached roles after an assignment
// change.
func (m *AccessMiddleware) InvalidateRoles(userID string) {
	m.roleCache.Delete(userID)
}

func (m *AccessMiddleware) deny(c *gin.Context, status int, message string) {
	c.JSON(status, handler.NewErrorResponse(message))
	c.Abort()
}

func (m *AccessMiddleware) denyForbidden(c *gin.Context, permission string) {
	c.Set(ContextDeniedPermission, permission)
	m.deny(c, http.StatusForbidden, "You do not have permission to access this page")
}

func (m *AccessMiddleware) observe(outcome string, start time.Time) {
	if m.metrics == nil {
		return
	}
	decision := "allowed"
	if strings.HasPrefix(outcome, "deny") {
		decision = "denied"
	}
	m.metrics.AccessDecisions.WithLabelValues(decision).Inc()
	m.metrics.AccessLatency.Observe(time.Since(start).Seconds())
}

// ContextDeniedPermission carries the permission that failed, for the
// audit middleware.
const ContextDeniedPermission = "denied_permission"
