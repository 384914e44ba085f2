package api

import (
	"encoding/json"

	"saastracker-backend/internal/core"
	"saastracker-backend/internal/models"
)

// CallableRequest is the body of every POST /rpc/<name> call.
type CallableRequest struct {
	Data json.RawMessage `json:"data"`
}

// CallableResponse wraps a successful callable result.
type CallableResponse struct {
	Result interface{} `json:"result"`
}

// CallableError is the error object of a failed callable invocation.
type CallableError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CallableErrorResponse wraps a CallableError.
type CallableErrorResponse struct {
	Error CallableError `json:"error"`
}

// ErrorResponse is the error body of the plain HTTP endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserIDResult is returned by userCreateWithClerk and the HTTP fallback.
type UserIDResult struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
}

// UserResult is returned by userGetWithClerk and userUpdateWithClerk.
type UserResult struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}

// UserDataResult is returned by the legacy userCreate and userGet.
type UserDataResult struct {
	Success bool         `json:"success"`
	Data    *models.User `json:"data"`
}

// ToolIDResult is returned by the tool mutations.
type ToolIDResult struct {
	Success bool   `json:"success"`
	ToolID  string `json:"toolId"`
}

// ToolsResult is returned by getSaaSTools.
type ToolsResult struct {
	Success bool           `json:"success"`
	Tools   []*models.Tool `json:"tools"`
}

// SummaryResult is returned by getSaaSToolsSummary.
type SummaryResult struct {
	Success bool              `json:"success"`
	Summary core.SpendSummary `json:"summary"`
}

// SuccessResult is returned by calls with no payload.
type SuccessResult struct {
	Success bool `json:"success"`
}
