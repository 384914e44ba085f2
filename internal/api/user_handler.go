package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saastracker-backend/internal/core"
	"saastracker-backend/internal/models"
)

// UserHandler serves the Clerk-keyed user RPCs and the plain HTTP create fallback.
type UserHandler struct {
	userService core.UserService
	log         *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(us core.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{userService: us, log: log}
}

// Register adds the user RPCs to r.
func (h *UserHandler) Register(r *Callables) {
	r.Handle("userCreateWithClerk", h.CreateWithClerk)
	r.Handle("userGetWithClerk", h.GetWithClerk)
	r.Handle("userUpdateWithClerk", h.UpdateWithClerk)
}

// CreateWithClerk handles userCreateWithClerk.
func (h *UserHandler) CreateWithClerk(c *gin.Context, data json.RawMessage) (interface{}, error) {
	var req models.CreateUserRequest
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	id, err := h.userService.CreateWithClerk(c.Request.Context(), req)
	if err != nil {
		return nil, err
	}
	h.log.Info("User created", zap.String("userId", id))
	return UserIDResult{Success: true, UserID: id}, nil
}

// GetWithClerk handles userGetWithClerk.
func (h *UserHandler) GetWithClerk(c *gin.Context, data json.RawMessage) (interface{}, error) {
	var req models.OwnerRequest
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	user, err := h.userService.GetWithClerk(c.Request.Context(), req.ClerkUserID)
	if err != nil {
		return nil, err
	}
	return UserResult{Success: true, User: user}, nil
}

// UpdateWithClerk handles userUpdateWithClerk.
func (h *UserHandler) UpdateWithClerk(c *gin.Context, data json.RawMessage) (interface{}, error) {
	var req models.UpdateUserRequest
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	user, err := h.userService.UpdateWithClerk(c.Request.Context(), req)
	if err != nil {
		return nil, err
	}
	return UserResult{Success: true, User: user}, nil
}

func setOpenCORSHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
}

// CreateHTTPPreflight answers OPTIONS /userCreateHttp.
func (h *UserHandler) CreateHTTPPreflight(c *gin.Context) {
	setOpenCORSHeaders(c)
	c.Status(http.StatusNoContent)
}

// CreateHTTP handles POST /userCreateHttp, the plain HTTP fallback for userCreateWithClerk.
// Errors use the plain {"error": "..."} body rather than the callable envelope.
func (h *UserHandler) CreateHTTP(c *gin.Context) {
	setOpenCORSHeaders(c)

	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ClerkUserID == "" || req.Email == "" {
		h.log.Info("HTTP create user rejected", zap.String("clerkUserId", req.ClerkUserID))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing required fields: clerkUserId and email"})
		return
	}

	id, err := h.userService.CreateWithClerk(c.Request.Context(), req)
	if err != nil {
		h.log.Error("HTTP create user failed", zap.String("clerkUserId", req.ClerkUserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: core.MessageOf(err)})
		return
	}
	h.log.Info("HTTP user created", zap.String("userId", id))
	c.JSON(http.StatusOK, UserIDResult{Success: true, UserID: id})
}
