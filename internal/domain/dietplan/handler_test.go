package dietplan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo, uuid.UUID) {
	svc, _, p := newTestService()
	return NewHandler(svc), echo.New(), p.ID
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func expectHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestHandler_Suggest(t *testing.T) {
	h, e, patientID := newTestHandler()

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/", `{"preset":"Pérdida de Peso"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(patientID.String())

	if err := h.Suggest(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Target struct {
			DailyCalories int    `json:"dailyCalories"`
			Preset        string `json:"preset"`
		} `json:"target"`
		Payload struct {
			DailyCaloriesTarget int `json:"dailyCaloriesTarget"`
			DailyMacrosTarget   struct {
				Protein int `json:"protein"`
			} `json:"dailyMacrosTarget"`
		} `json:"payload"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Target.DailyCalories != 2424 || resp.Payload.DailyCaloriesTarget != 2424 {
		t.Errorf("expected 2424 kcal, got %+v", resp)
	}
	if resp.Target.Preset != "Pérdida de Peso" {
		t.Errorf("expected preset applied, got %q", resp.Target.Preset)
	}
	if resp.Payload.DailyMacrosTarget.Protein != 212 {
		t.Errorf("expected 212 g protein, got %d", resp.Payload.DailyMacrosTarget.Protein)
	}
}

func TestHandler_Suggest_UnknownPatient(t *testing.T) {
	h, e, _ := newTestHandler()

	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	expectHTTPError(t, h.Suggest(c), http.StatusNotFound)
}

func TestHandler_CreatePlan(t *testing.T) {
	h, e, patientID := newTestHandler()

	body := `{"patient_id":"` + patientID.String() + `","name":"Plan","preset":"cetogénica","daily_calories":2000,
		"distribution":{"protein":25,"carbohydrates":5,"fats":70},
		"macro_grams":{"protein":999,"carbohydrates":999,"fats":999},"start_date":"2025-03-01"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/v1/diet-plans", body), rec)

	if err := h.CreatePlan(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var got DietPlan
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.MacroGrams.Protein != 125 || got.MacroGrams.Fats != 156 {
		t.Errorf("expected grams recomputed from calories, got %+v", got.MacroGrams)
	}
	if got.Preset != "Cetogénica" {
		t.Errorf("expected matching preset label to be kept, got %q", got.Preset)
	}
	if got.StartDate == nil || got.StartDate.Format("2006-01-02") != "2025-03-01" {
		t.Errorf("expected start date, got %v", got.StartDate)
	}
}

func TestHandler_CreatePlan_BadRequest(t *testing.T) {
	h, e, patientID := newTestHandler()

	body := `{"patient_id":"` + patientID.String() + `","name":""}`
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/v1/diet-plans", body), httptest.NewRecorder())
	expectHTTPError(t, h.CreatePlan(c), http.StatusBadRequest)
}

func TestHandler_GetPlan_NotFound(t *testing.T) {
	h, e, _ := newTestHandler()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	expectHTTPError(t, h.GetPlan(c), http.StatusNotFound)
}

func TestHandler_ActivateAndPayload(t *testing.T) {
	h, e, patientID := newTestHandler()
	plan := &DietPlan{PatientID: patientID, Name: "Plan", DailyCalories: 1800}
	if err := h.svc.CreatePlan(context.Background(), plan); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(plan.ID.String())
	if err := h.ActivatePlan(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"active"`) {
		t.Errorf("expected active plan, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(plan.ID.String())
	if err := h.Payload(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"dailyCaloriesTarget":1800`) {
		t.Errorf("unexpected payload: %s", rec.Body.String())
	}
}

func TestHandler_ListByPatient(t *testing.T) {
	h, e, patientID := newTestHandler()
	if err := h.svc.CreatePlan(context.Background(), &DietPlan{PatientID: patientID, Name: "Plan"}); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/patients/x/diet-plans", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(patientID.String())
	if err := h.ListByPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("expected one plan, got %s", rec.Body.String())
	}
}
