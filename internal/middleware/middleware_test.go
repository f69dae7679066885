package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/repository"
)

const secret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signed(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func router(store *repository.Store) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	authed := r.Group("/", UserAuth(secret, store.Users))
	authed.GET("/me", func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"email": user.Email})
	})
	authed.GET("/admin", AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUserAuth(t *testing.T) {
	store := repository.NewMemoryStore()
	user := models.User{Name: "Ravi", Email: "ravi@example.com", PasswordHash: "x"}
	require.NoError(t, store.Users.Create(context.Background(), &user))
	r := router(store)
	exp := time.Now().Add(time.Hour).Unix()

	valid := signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"userId": user.ID.Hex(), "exp": exp})
	w := do(r, "/me", valid)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ravi@example.com")
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)

	forged := signed(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"userId": user.ID.Hex(), "exp": exp})
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", forged).Code)

	expired := signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"userId": user.ID.Hex(), "exp": time.Now().Add(-time.Minute).Unix()})
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", expired).Code)

	noClaim := signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"exp": exp})
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", noClaim).Code)

	require.NoError(t, store.Users.Delete(context.Background(), user.ID))
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", valid).Code)
}

func TestAdminOnly(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	admin := models.User{Name: "Root", Email: "root@example.com", IsAdmin: true, PasswordHash: "x"}
	shopper := models.User{Name: "Ravi", Email: "ravi@example.com", PasswordHash: "x"}
	require.NoError(t, store.Users.Create(ctx, &admin))
	require.NoError(t, store.Users.Create(ctx, &shopper))
	r := router(store)
	exp := time.Now().Add(time.Hour).Unix()

	adminToken := signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"userId": admin.ID.Hex(), "exp": exp})
	shopperToken := signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"userId": shopper.ID.Hex(), "exp": exp})

	assert.Equal(t, http.StatusNoContent, do(r, "/admin", adminToken).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/admin", shopperToken).Code)
}

func TestRequestIDEchoesIncomingHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("requestId")) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
	assert.Equal(t, "req-42", w.Body.String())
}
