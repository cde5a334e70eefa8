package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/scidatahub/platform/internal/api/httpx"
	"github.com/scidatahub/platform/internal/middleware"
	"github.com/scidatahub/platform/internal/models"
	repo "github.com/scidatahub/platform/internal/repository"
	"github.com/scidatahub/platform/internal/services"
)

type AuthHandler struct {
	users *services.UserService
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := readJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := h.users.Register(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := h.users.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token string `json:"token"`
	}
	if err := readJSON(r, &in); err != nil || in.Token == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "No token provided")
		return
	}
	u, err := h.users.Verify(r.Context(), in.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"valid": true, "user": u})
}

// Profile returns the profile for the userId in the path. Self-or-admin
// enforcement happens here rather than in the router: a user may read and
// edit only their own profile unless they can manage users.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !canAccessProfile(r, userID) {
		httpx.WriteError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}
	u, err := h.users.Profile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !canAccessProfile(r, userID) {
		httpx.WriteError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}
	var in services.ProfileUpdate
	if err := readJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	u, err := h.users.UpdateProfile(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	f := repo.UserFilter{
		Role:   r.URL.Query().Get("role"),
		Search: r.URL.Query().Get("search"),
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 10),
	}
	page, err := h.users.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *AuthHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "User deactivated"})
}

func canAccessProfile(r *http.Request, userID string) bool {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		return false
	}
	return claims.UserID == userID || claims.HasPermission(models.PermManageUsers)
}
