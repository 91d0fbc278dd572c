package dietplan

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nutriplan/nutriplan/internal/clinical"
	"github.com/nutriplan/nutriplan/internal/nutrition"
)

// NutritionHandler serves the stateless calculator endpoints used while a
// plan is being edited. Nothing here touches storage.
type NutritionHandler struct {
	deriver *nutrition.Deriver
}

func NewNutritionHandler(deriver *nutrition.Deriver) *NutritionHandler {
	return &NutritionHandler{deriver: deriver}
}

func (h *NutritionHandler) RegisterRoutes(api *echo.Group) {
	api.GET("/nutrition/presets", h.ListPresets)
	api.POST("/nutrition/derive", h.Derive)
	api.POST("/nutrition/redistribute", h.Redistribute)
}

func (h *NutritionHandler) ListPresets(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"data": h.deriver.Presets()})
}

// DeriveRequest takes a clinical record in any of the accepted shapes, under
// the same clinical_data key the patient endpoints use.
type DeriveRequest struct {
	ClinicalData json.RawMessage `json:"clinical_data"`
	SuggestRequest
}

func (h *NutritionHandler) Derive(c echo.Context) error {
	var req DeriveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := CheckPreset(h.deriver, req.Preset); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	snapshot, err := clinical.Parse(req.ClinicalData)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	draft := nutrition.NewDraft(h.deriver.Derive(snapshot, req.Options()))
	return c.JSON(http.StatusOK, SuggestResponse{Target: draft, Payload: draft.Payload()})
}

// RedistributeRequest is one slider edit on a distribution.
type RedistributeRequest struct {
	Distribution nutrition.Distribution `json:"distribution"`
	Axis         string                 `json:"axis"`
	Value        int                    `json:"value"`
	Calories     int                    `json:"calories"`
}

type RedistributeResponse struct {
	Distribution     nutrition.Distribution `json:"distribution"`
	MacroGramsPerDay nutrition.MacroGrams   `json:"macroGramsPerDay"`
	Payload          nutrition.Payload      `json:"payload"`
}

func (h *NutritionHandler) Redistribute(c echo.Context) error {
	var req RedistributeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	axis, err := nutrition.ParseAxis(req.Axis)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Calories < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "calories must not be negative")
	}
	draft := nutrition.NewDraft(nutrition.Target{DailyCalories: req.Calories, Distribution: req.Distribution}).
		WithMacroPercent(axis, req.Value)
	return c.JSON(http.StatusOK, RedistributeResponse{
		Distribution:     draft.Distribution(),
		MacroGramsPerDay: draft.Grams(),
		Payload:          draft.Payload(),
	})
}
