package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"github.com/nutriplan/nutriplan/internal/clinical"
	"github.com/nutriplan/nutriplan/internal/nutrition"
)

type DeriveTargetParams struct {
	// ClinicalData is the record as an object or as a JSON-encoded string.
	ClinicalData json.RawMessage         `json:"clinical_data" description:"Clinical record of the patient"`
	Preset       string                  `json:"preset,omitempty" description:"Named macro distribution"`
	Calories     int                     `json:"calories,omitempty" description:"Override for the daily calories"`
	Distribution *nutrition.Distribution `json:"distribution,omitempty" description:"Explicit macro percentages"`
}

type RedistributeParams struct {
	Distribution nutrition.Distribution `json:"distribution" description:"Current macro percentages"`
	Axis         string                 `json:"axis" description:"protein, carbohydrates or fats"`
	Value        int                    `json:"value" description:"New percentage for the axis"`
	Calories     int                    `json:"calories,omitempty" description:"Daily calories used for the gram conversion"`
}

type targetResult struct {
	Target  nutrition.Target  `json:"target"`
	Payload nutrition.Payload `json:"payload"`
}

func (s *Server) handleDeriveTarget(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params DeriveTargetParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.Preset != "" {
		if _, ok := s.deriver.Preset(params.Preset); !ok {
			return nil, fmt.Errorf("%w: unknown preset %q", ErrInvalidParams, params.Preset)
		}
	}
	snapshot, err := clinical.Parse(params.ClinicalData)
	if err != nil {
		return nil, fmt.Errorf("%w: clinical_data: %v", ErrInvalidParams, err)
	}
	draft := nutrition.NewDraft(s.deriver.Derive(snapshot, nutrition.Options{
		Preset:       params.Preset,
		Calories:     params.Calories,
		Distribution: params.Distribution,
	}))
	return jsonResult(targetResult{Target: draft.Target(), Payload: draft.Payload()})
}

func (s *Server) handleListPresets(_ context.Context, _ *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return jsonResult(map[string]interface{}{"presets": s.deriver.Presets()})
}

func (s *Server) handleRedistribute(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params RedistributeParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	axis, err := nutrition.ParseAxis(params.Axis)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if params.Calories < 0 {
		return nil, fmt.Errorf("%w: calories must not be negative", ErrInvalidParams)
	}
	draft := nutrition.NewDraft(nutrition.Target{DailyCalories: params.Calories, Distribution: params.Distribution}).
		WithMacroPercent(axis, params.Value)
	return jsonResult(map[string]interface{}{
		"distribution":     draft.Distribution(),
		"macroGramsPerDay": draft.Grams(),
	})
}
