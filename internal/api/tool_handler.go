package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"saastracker-backend/internal/core"
	"saastracker-backend/internal/models"
)

// ToolHandler serves the SaaS tool RPCs.
type ToolHandler struct {
	toolService core.ToolService
}

// NewToolHandler creates a new ToolHandler.
func NewToolHandler(ts core.ToolService) *ToolHandler {
	return &ToolHandler{toolService: ts}
}

// Register adds the tool RPCs to r.
func (h *ToolHandler) Register(r *Callables) {
	r.Handle("createSaaSTool", h.Create)
	r.Handle("getSaaSTools", h.List)
	r.Handle("updateSaaSTool", h.Update)
	r.Handle("deleteSaaSTool", h.Delete)
	r.Handle("getSaaSToolsSummary", h.Summary)
}

func (h *ToolHandler) Create(c *gin.Context, data json.RawMessage) (interface{}, error) {
	var req models.CreateToolRequest
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	id, err := h.toolService.Create(c.Request.Context(), req)
	if err != nil {
		return nil, err
	}
	return ToolIDResult{Success: true, ToolID: id}, nil
}

func (h *ToolHandler) List(c *gin.Context, data json.RawMessage) (interface{}, error) {
	var req models.OwnerRequest
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	tools, err := h.toolService.List(c.Request.Context(), req.ClerkUserID)
	if err != nil {
		return nil, err
	}
	if tools == nil {
		tools = []*models.Tool{}
	}
	return ToolsResult{Success: true, Tools: tools}, nil
}

func (h *ToolHandler) Update(c *gin.Context, data json.RawMessage) (interface{}, error) {
	var req models.UpdateToolRequest
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	id, err := h.toolService.Update(c.Request.Context(), req)
	if err != nil {
		return nil, err
	}
	return ToolIDResult{Success: true, ToolID: id}, nil
}

func (h *ToolHandler) Delete(c *gin.Context, data json.RawMessage) (interface{}, error) {
	var req models.DeleteToolRequest
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	id, err := h.toolService.Delete(c.Request.Context(), req)
	if err != nil {
		return nil, err
	}
	return ToolIDResult{Success: true, ToolID: id}, nil
}

func (h *ToolHandler) Summary(c *gin.Context, data json.RawMessage) (interface{}, error) {
	var req models.OwnerRequest
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	s, err := h.toolService.Summary(c.Request.Context(), req.ClerkUserID)
	if err != nil {
		return nil, err
	}
	return SummaryResult{Success: true, Summary: s}, nil
}
