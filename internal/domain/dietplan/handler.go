package dietplan

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nutriplan/nutriplan/internal/domain/patient"
	"github.com/nutriplan/nutriplan/internal/nutrition"
	"github.com/nutriplan/nutriplan/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients/:id/diet-plans/suggest", h.Suggest)
	api.GET("/patients/:id/diet-plans", h.ListByPatient)

	api.POST("/diet-plans", h.CreatePlan)
	api.GET("/diet-plans/:id", h.GetPlan)
	api.PUT("/diet-plans/:id", h.UpdatePlan)
	api.DELETE("/diet-plans/:id", h.DeletePlan)
	api.POST("/diet-plans/:id/activate", h.ActivatePlan)
	api.GET("/diet-plans/:id/payload", h.Payload)
}

// SuggestResponse pairs the editable target with its submission payload.
type SuggestResponse struct {
	Target  nutrition.Draft   `json:"target"`
	Payload nutrition.Payload `json:"payload"`
}

func (h *Handler) Suggest(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req SuggestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	draft, err := h.svc.Suggest(c.Request().Context(), patientID, req.Options())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, SuggestResponse{Target: draft, Payload: draft.Payload()})
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	plans, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	if plans == nil {
		plans = []*DietPlan{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(plans, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL))
}

func (h *Handler) CreatePlan(c echo.Context) error {
	var plan DietPlan
	if err := c.Bind(&plan); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePlan(c.Request().Context(), &plan); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, plan)
}

func (h *Handler) GetPlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	plan, err := h.svc.GetPlan(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, plan)
}

func (h *Handler) UpdatePlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var plan DietPlan
	if err := c.Bind(&plan); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	plan.ID = id
	if err := h.svc.UpdatePlan(c.Request().Context(), &plan); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, plan)
}

func (h *Handler) ActivatePlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	plan, err := h.svc.ActivatePlan(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, plan)
}

func (h *Handler) DeletePlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeletePlan(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Payload(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	payload, err := h.svc.Payload(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, payload)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "diet plan not found")
	case errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
