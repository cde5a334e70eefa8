package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scidatahub/platform/internal/auth"
	"github.com/scidatahub/platform/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_MissingHeader(t *testing.T) {
	tm := auth.NewTokenManager("secret", "test", time.Hour)
	h := NewAuthMiddleware(tm).Auth(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_BadToken(t *testing.T) {
	tm := auth.NewTokenManager("secret", "test", time.Hour)
	h := NewAuthMiddleware(tm).Auth(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_ValidTokenExposesClaims(t *testing.T) {
	tm := auth.NewTokenManager("secret", "test", time.Hour)
	token, _, err := tm.Generate(models.User{
		ID:          "user-1",
		Permissions: models.PermissionsFor(models.RoleReviewer),
	})
	require.NoError(t, err)

	var got *auth.Claims
	h := NewAuthMiddleware(tm).Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.UserID)
}

func TestRequirePermission(t *testing.T) {
	tm := auth.NewTokenManager("secret", "test", time.Hour)

	run := func(perms []models.Permission, need models.Permission) int {
		token, _, err := tm.Generate(models.User{ID: "u", Permissions: perms})
		require.NoError(t, err)

		h := NewAuthMiddleware(tm).Auth(RequirePermission(need)(okHandler()))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK,
		run(models.PermissionsFor(models.RoleReviewer), models.PermReviewSubmission))
	assert.Equal(t, http.StatusForbidden,
		run(models.PermissionsFor(models.RoleCitizen), models.PermReviewSubmission))
	assert.Equal(t, http.StatusForbidden,
		run(models.PermissionsFor(models.RoleReviewer), models.PermManageUsers))
}

func TestRequirePermission_NoClaims(t *testing.T) {
	h := RequirePermission(models.PermReviewSubmission)(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2)(okHandler())

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Contains(t, codes, http.StatusTooManyRequests)
}
