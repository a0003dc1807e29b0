package middleware

import (
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"freightops/internal/authz"
	"freightops/internal/model"
	"freightops/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const actorContextKey = "actor"

func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // Development fallback only — DO NOT use in production
	}
	return []byte(secret)
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", accessToken, 3600*24, "/", "", secure, true)
	c.SetCookie("refresh_token", refreshToken, 3600*24*7, "/", "", secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", secure, true)
}

// --- Actor resolution ---

// actorCacheEntry caches a resolved actor with TTL so the user row is not
// re-read on every request. Deactivation propagates within actorCacheTTL at
// worst; user mutations clear the entry eagerly.
type actorCacheEntry struct {
	actor     model.Actor
	active    bool
	expiresAt time.Time
}

var (
	actorCache    sync.Map // user id string -> actorCacheEntry
	actorCacheTTL = 30 * time.Second
)

// actorDB holds the database reference for actor resolution — set via InitActorResolver
var actorDB *gorm.DB

// InitActorResolver sets the DB reference used to resolve actors from tokens.
func InitActorResolver(db *gorm.DB) {
	actorDB = db
}

// ClearActorCache removes the cached actor for a user (or all users if empty).
func ClearActorCache(userID string) {
	if userID == "" {
		actorCache.Range(func(key, _ interface{}) bool {
			actorCache.Delete(key)
			return true
		})
	} else {
		actorCache.Delete(userID)
	}
}

func resolveActor(userID string) (model.Actor, bool, error) {
	if entry, ok := actorCache.Load(userID); ok {
		cached := entry.(actorCacheEntry)
		if time.Now().Before(cached.expiresAt) {
			return cached.actor, cached.active, nil
		}
	}

	if actorDB == nil {
		return model.Actor{}, false, gorm.ErrInvalidDB
	}

	var user model.User
	if err := actorDB.First(&user, "id = ?", userID).Error; err != nil {
		return model.Actor{}, false, err
	}

	actor := model.Actor{ID: user.ID, Role: user.Role}
	actorCache.Store(userID, actorCacheEntry{
		actor:     actor,
		active:    user.IsActive,
		expiresAt: time.Now().Add(actorCacheTTL),
	})

	return actor, user.IsActive, nil
}

// extractToken pulls the bearer token from cookie or Authorization header.
func extractToken(c *gin.Context) (string, bool) {
	tokenString, cookieErr := c.Cookie("access_token")
	if cookieErr == nil && tokenString != "" {
		return tokenString, true
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// RequireActor validates the JWT, resolves the caller to an active user and
// stores the actor in the request context. Inactive or unknown users are
// rejected before any handler runs.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Fail("unauthorized", "authorization is missing or malformed"))
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return GetJWTSecret(), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Fail("unauthorized", "invalid token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Fail("unauthorized", "invalid token claims"))
			return
		}

		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Fail("unauthorized", "subject missing from token"))
			return
		}
		if _, err := uuid.Parse(sub); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Fail("unauthorized", "invalid subject in token"))
			return
		}

		actor, active, err := resolveActor(sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Fail("unauthorized", "unknown identity"))
			return
		}
		if !active {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Fail("account_inactive", "account is deactivated"))
			return
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// RequireOperation gates a route on the authorization table. It must run
// after RequireActor. Denial never touches any state.
func RequireOperation(op authz.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Fail("unauthorized", "no resolved actor"))
			return
		}
		if !authz.Allowed(actor.Role, op) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Fail("forbidden", "role is not permitted for this operation"))
			return
		}
		c.Next()
	}
}

// ActorFrom extracts the resolved actor from the request context.
func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}
