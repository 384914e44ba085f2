package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"saastracker-backend/internal/core"
	"saastracker-backend/internal/middleware"
	"saastracker-backend/internal/models"
)

// AuthHandler serves the legacy user RPCs keyed by the verified Firebase Auth uid.
type AuthHandler struct {
	userService core.UserService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(us core.UserService) *AuthHandler {
	return &AuthHandler{userService: us}
}

// Register adds userCreate and userGet to r.
func (h *AuthHandler) Register(r *Callables) {
	r.Handle("userCreate", h.CreateUser)
	r.Handle("userGet", h.GetUser)
}

// CreateUser handles userCreate. The email falls back to the token's email claim.
func (h *AuthHandler) CreateUser(c *gin.Context, data json.RawMessage) (interface{}, error) {
	uid := middleware.UserID(c)
	if uid == "" {
		return nil, core.ErrUnauthenticated
	}
	var req models.AuthUserRequest
	if err := decodeOptional(data, &req); err != nil {
		return nil, err
	}
	if req.Email == "" {
		req.Email = middleware.UserEmail(c)
	}
	user, err := h.userService.CreateForAuthUser(c.Request.Context(), uid, req)
	if err != nil {
		return nil, err
	}
	return UserDataResult{Success: true, Data: user}, nil
}

// GetUser handles userGet.
func (h *AuthHandler) GetUser(c *gin.Context, _ json.RawMessage) (interface{}, error) {
	user, err := h.userService.GetForAuthUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		return nil, err
	}
	return UserDataResult{Success: true, Data: user}, nil
}
