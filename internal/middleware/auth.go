package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"backoffice/internal/model"
	"backoffice/internal/policy"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const actorKey = "actor"

// UserLoader fetches the user a token was issued to.
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// PermissionLoader fetches the permission codes granted to a role.
type PermissionLoader interface {
	PermissionCodes(ctx context.Context, roleID uuid.UUID) ([]string, error)
}

// AuthConfig controls token verification and cookie flags.
type AuthConfig struct {
	Secret        []byte
	SecureCookies bool
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Auth authenticates requests and attaches the acting user to the context.
type Auth struct {
	cfg         AuthConfig
	users       UserLoader
	permissions *PermissionCache
	logger      *zap.Logger
}

func NewAuth(cfg AuthConfig, users UserLoader, permissions *PermissionCache, logger *zap.Logger) *Auth {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 24 * time.Hour
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Auth{cfg: cfg, users: users, permissions: permissions, logger: logger}
}

// Secret returns the HMAC key tokens are signed with.
func (a *Auth) Secret() []byte {
	return a.cfg.Secret
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func (a *Auth) SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	a.setCookies(c, accessToken, refreshToken, int(a.cfg.AccessTTL.Seconds()), int(a.cfg.RefreshTTL.Seconds()))
}

// ClearTokenCookies removes access_token and refresh_token cookies
func (a *Auth) ClearTokenCookies(c *gin.Context) {
	a.setCookies(c, "", "", -1, -1)
}

func (a *Auth) setCookies(c *gin.Context, access, refresh string, accessAge, refreshAge int) {
	// cross-origin deployments need SameSite=None, which browsers only accept with Secure
	sameSite := http.SameSiteLaxMode
	if a.cfg.SecureCookies {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie("access_token", access, accessAge, "/", "", a.cfg.SecureCookies, true)
	c.SetCookie("refresh_token", refresh, refreshAge, "/", "", a.cfg.SecureCookies, true)
}

// tokenFromRequest reads the access token from the cookie, falling back to the Authorization header.
func tokenFromRequest(c *gin.Context) (string, error) {
	if tokenString, err := c.Cookie("access_token"); err == nil && tokenString != "" {
		return tokenString, nil
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", errors.New("Authorization is missing")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("Invalid authorization format. Expected 'Bearer <token>'")
	}
	return parts[1], nil
}

// ParseToken verifies an HS256 token and returns its subject.
func ParseToken(tokenString string, secret []byte) (uuid.UUID, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, nil, errors.New("Invalid token")
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, nil, errors.New("Invalid token claims")
	}
	return id, claims, nil
}

// RequireAuth validates the JWT, loads the user and their role's permissions
// and stores the resulting *policy.Actor on the context.
func (a *Auth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := tokenFromRequest(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		userID, _, err := ParseToken(tokenString, a.cfg.Secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		ctx := c.Request.Context()
		user, err := a.users.GetByID(ctx, userID)
		if err != nil || !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Account not found or inactive"))
			return
		}

		var roleID uuid.UUID
		var codes []string
		if user.RoleID != nil {
			roleID = *user.RoleID
			codes, err = a.permissions.Get(ctx, roleID)
			if err != nil {
				a.logger.Error("Failed to load role permissions", zap.String("role_id", roleID.String()), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
				return
			}
		}

		SetActor(c, policy.NewActor(user.ID, roleID, user.RoleName(), codes))
		c.Next()
	}
}

// SetActor attaches the acting user to the request.
func SetActor(c *gin.Context, actor *policy.Actor) {
	c.Set(actorKey, actor)
}

// ActorFrom returns the actor stored by RequireAuth, or nil.
func ActorFrom(c *gin.Context) *policy.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*policy.Actor)
	return actor
}

// RequirePermission checks that the actor holds every listed permission. Super Admin always passes.
func RequirePermission(requiredPerms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if actor == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthenticated"))
			return
		}
		if actor.IsSuperAdmin() {
			c.Next()
			return
		}
		for _, required := range requiredPerms {
			if !actor.Can(required) {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+required+"'"))
				return
			}
		}
		c.Next()
	}
}

// RequireAnyPermission passes when the actor holds at least one of perms.
func RequireAnyPermission(perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if actor == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthenticated"))
			return
		}
		if actor.IsSuperAdmin() {
			c.Next()
			return
		}
		for _, p := range perms {
			if actor.Can(p) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "You are not allowed to perform this action."))
	}
}

// Authorize runs a target-less gate check (viewAny, create) before the handler.
func Authorize(gate *policy.Gate, resource, ability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := gate.Authorize(ActorFrom(c), resource, ability, nil)
		if d.Allowed {
			c.Next()
			return
		}
		status := http.StatusForbidden
		if d.NotFound {
			status = http.StatusNotFound
		}
		c.AbortWithStatusJSON(status, response.Error(status, d.Message))
	}
}

// --- Permission cache ---

// permCacheEntry stores cached permission codes for a role with TTL
type permCacheEntry struct {
	codes     []string
	expiresAt time.Time
}

// PermissionCache memoizes role permission codes by role id.
type PermissionCache struct {
	source  PermissionLoader
	ttl     time.Duration
	entries sync.Map // roleID -> permCacheEntry
	now     func() time.Time
}

func NewPermissionCache(source PermissionLoader, ttl time.Duration) *PermissionCache {
	return &PermissionCache{source: source, ttl: ttl, now: time.Now}
}

// Get returns cached codes or loads them from the source.
func (p *PermissionCache) Get(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	if entry, ok := p.entries.Load(roleID); ok {
		cached := entry.(permCacheEntry)
		if p.now().Before(cached.expiresAt) {
			return cached.codes, nil
		}
	}

	codes, err := p.source.PermissionCodes(ctx, roleID)
	if err != nil {
		return nil, err
	}
	p.entries.Store(roleID, permCacheEntry{codes: codes, expiresAt: p.now().Add(p.ttl)})
	return codes, nil
}

// Invalidate drops the cached codes of a role.
func (p *PermissionCache) Invalidate(roleID uuid.UUID) {
	p.entries.Delete(roleID)
}
