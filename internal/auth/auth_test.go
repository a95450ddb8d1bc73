package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTripCarriesRole(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	token, err := m.GenerateAccessToken("user-1", "u1@example.com", RoleStaff)
	require.NoError(t, err)

	claims, err := m.ParseAndValidate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, RoleStaff, claims.Role)
}

func TestJWTRejectsUnknownRoleAndForeignSecret(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	token, err := m.GenerateAccessToken("user-1", "", Role("superuser"))
	require.NoError(t, err)
	_, err = m.ParseAndValidate(token)
	assert.Error(t, err)

	other := NewJWTManager("other", time.Hour)
	foreign, err := other.GenerateAccessToken("user-1", "", RoleClient)
	require.NoError(t, err)
	_, err = m.ParseAndValidate(foreign)
	assert.Error(t, err)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	claims := &Claims{
		Role: RoleClient,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = m.ParseAndValidate(token)
	assert.Error(t, err)
}

func TestJWTRequiresExpiryAndHS256(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:             RoleClient,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.ParseAndValidate(noExpiry)
	assert.Error(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		Role: RoleClient,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.ParseAndValidate(hs512)
	assert.Error(t, err)
}

func TestMiddlewareSetsActorAndEnforcesRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewJWTManager("secret", time.Hour)

	r := gin.New()
	r.GET("/me", AuthRequired(m), func(c *gin.Context) {
		a := GetActor(c)
		c.JSON(http.StatusOK, gin.H{"id": a.UserID, "role": a.Role})
	})
	r.GET("/review", AuthRequired(m), RequireRole(RoleStaff, RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	clientToken, _ := m.GenerateAccessToken("client-1", "", RoleClient)
	adminToken, _ := m.GenerateAccessToken("admin-1", "", RoleAdmin)

	do := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do("/me", clientToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"client-1","role":"client"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do("/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do("/me", "garbage").Code)
	assert.Equal(t, http.StatusForbidden, do("/review", clientToken).Code)
	assert.Equal(t, http.StatusNoContent, do("/review", adminToken).Code)
}

func TestRoleHelpers(t *testing.T) {
	assert.True(t, RoleAdmin.IsStaff())
	assert.True(t, RoleStaff.IsStaff())
	assert.False(t, RoleClient.IsStaff())
	assert.False(t, Role("").Valid())
}
