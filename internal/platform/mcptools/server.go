// Package mcptools exposes the nutrition calculator as MCP tool calls, so
// assistants can derive targets and rebalance macros over plain HTTP.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/labstack/echo/v4"

	"github.com/nutriplan/nutriplan/internal/nutrition"
)

var (
	ErrUnknownTool   = errors.New("unknown tool")
	ErrInvalidParams = errors.New("invalid parameters")
)

type toolFunc func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

type tool struct {
	description string
	call        toolFunc
}

// ToolInfo describes one registered tool.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Server struct {
	deriver *nutrition.Deriver
	tools   map[string]tool
}

func NewServer(deriver *nutrition.Deriver) *Server {
	s := &Server{deriver: deriver}
	s.tools = map[string]tool{
		"derive_nutrition_target": {
			description: "Derive daily calories, macro grams, micronutrients and water from a clinical record",
			call:        s.handleDeriveTarget,
		},
		"list_macro_presets": {
			description: "List the named macro distributions",
			call:        s.handleListPresets,
		},
		"redistribute_macros": {
			description: "Set one macro percentage and rebalance the other two so the split sums to 100",
			call:        s.handleRedistribute,
		},
	}
	return s
}

func (s *Server) RegisterRoutes(g *echo.Group) {
	g.GET("/mcp/tools", s.ListTools)
	g.POST("/mcp", s.Handle)
}

// Tools returns the registered tools sorted by name.
func (s *Server) Tools() []ToolInfo {
	out := make([]ToolInfo, 0, len(s.tools))
	for name, t := range s.tools {
		out = append(out, ToolInfo{Name: name, Description: t.description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call dispatches a tool call by name.
func (s *Server) Call(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	t, ok := s.tools[req.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, req.Name)
	}
	return t.call(ctx, req)
}

func (s *Server) ListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"tools": s.Tools()})
}

func (s *Server) Handle(c echo.Context) error {
	var req protocol.CallToolRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
	}
	result, err := s.Call(c.Request().Context(), &req)
	switch {
	case errors.Is(err, ErrUnknownTool):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidParams):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// extractParams round-trips the argument map through JSON into target.
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	raw, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func jsonResult(data interface{}) (*protocol.CallToolResult, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(raw),
			},
		},
	}, nil
}
