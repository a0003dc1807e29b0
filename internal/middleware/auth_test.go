package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"freightops/internal/authz"
	"freightops/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, claims jwt.MapClaims, secret []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func newProtectedRouter() *gin.Engine {
	router := gin.New()
	router.GET("/protected", RequireActor(), func(c *gin.Context) {
		actor, _ := ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID.String(), "role": actor.Role})
	})
	return router
}

func TestRequireActorNoToken(t *testing.T) {
	router := newProtectedRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireActorMalformedHeader(t *testing.T) {
	router := newProtectedRouter()

	for _, header := range []string{"Bearer", "Basic abc", "Bearer a b c", "token-without-scheme"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", header)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestRequireActorBadSignature(t *testing.T) {
	router := newProtectedRouter()

	tokenString := signToken(t, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}, []byte("some-other-secret"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireActorExpiredToken(t *testing.T) {
	router := newProtectedRouter()

	tokenString := signToken(t, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	}, GetJWTSecret())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireActorNonUUIDSubject(t *testing.T) {
	router := newProtectedRouter()

	tokenString := signToken(t, jwt.MapClaims{
		"sub": "not-a-uuid",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, GetJWTSecret())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireActorResolvesFromCache(t *testing.T) {
	userID := uuid.New()
	actorCache.Store(userID.String(), actorCacheEntry{
		actor:     model.Actor{ID: userID, Role: authz.RoleAccounts},
		active:    true,
		expiresAt: time.Now().Add(time.Minute),
	})
	defer ClearActorCache(userID.String())

	router := newProtectedRouter()

	tokenString := signToken(t, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}, GetJWTSecret())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), authz.RoleAccounts)
}

func TestRequireActorInactiveUser(t *testing.T) {
	userID := uuid.New()
	actorCache.Store(userID.String(), actorCacheEntry{
		actor:     model.Actor{ID: userID, Role: authz.RoleSales},
		active:    false,
		expiresAt: time.Now().Add(time.Minute),
	})
	defer ClearActorCache(userID.String())

	router := newProtectedRouter()

	tokenString := signToken(t, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}, GetJWTSecret())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "account_inactive")
}

func TestRequireActorCookieToken(t *testing.T) {
	userID := uuid.New()
	actorCache.Store(userID.String(), actorCacheEntry{
		actor:     model.Actor{ID: userID, Role: authz.RoleVehicleOps},
		active:    true,
		expiresAt: time.Now().Add(time.Minute),
	})
	defer ClearActorCache(userID.String())

	router := newProtectedRouter()

	tokenString := signToken(t, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}, GetJWTSecret())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: tokenString})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireOperation(t *testing.T) {
	newRouter := func(role string) *gin.Engine {
		router := gin.New()
		router.PUT("/assign",
			func(c *gin.Context) {
				c.Set(actorContextKey, model.Actor{ID: uuid.New(), Role: role})
			},
			RequireOperation(authz.OpTripAssignVehicle),
			func(c *gin.Context) { c.Status(http.StatusOK) },
		)
		return router
	}

	t.Run("permitted role", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(authz.RoleVehicleOps).ServeHTTP(w, httptest.NewRequest("PUT", "/assign", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("admin override", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(authz.RoleAdmin).ServeHTTP(w, httptest.NewRequest("PUT", "/assign", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("denied role", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(authz.RoleSalesVehicles).ServeHTTP(w, httptest.NewRequest("PUT", "/assign", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no actor", func(t *testing.T) {
		router := gin.New()
		router.PUT("/assign", RequireOperation(authz.OpTripAssignVehicle), func(c *gin.Context) { c.Status(http.StatusOK) })
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("PUT", "/assign", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestClearActorCache(t *testing.T) {
	id1, id2 := uuid.NewString(), uuid.NewString()
	entry := actorCacheEntry{active: true, expiresAt: time.Now().Add(time.Minute)}
	actorCache.Store(id1, entry)
	actorCache.Store(id2, entry)

	ClearActorCache(id1)
	_, ok := actorCache.Load(id1)
	assert.False(t, ok)
	_, ok = actorCache.Load(id2)
	assert.True(t, ok)

	ClearActorCache("")
	_, ok = actorCache.Load(id2)
	assert.False(t, ok)
}
