package patient

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

func newTestHandler() (*Handler, *echo.Echo) {
	svc := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e
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

func createViaService(t *testing.T, h *Handler, first, last string) *Patient {
	t.Helper()
	p := &Patient{FirstName: first, LastName: last}
	if err := h.svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestHandler_CreatePatient(t *testing.T) {
	h, e := newTestHandler()

	body := `{"first_name":"Ana","last_name":"Pérez","birth_date":"1985-06-15","clinical_data":{"peso":62,"talla":1.6}}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/v1/patients", body), rec)

	if err := h.CreatePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var got map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got["birth_date"] != "1985-06-15" {
		t.Errorf("expected birth_date 1985-06-15, got %v", got["birth_date"])
	}
	if _, ok := got["clinical_data"]; ok {
		t.Error("expected clinical_data to be absent from the response")
	}
	snapshot := got["clinical"].(map[string]interface{})
	if snapshot["weight_kg"] != float64(62) {
		t.Errorf("expected weight_kg 62, got %v", snapshot["weight_kg"])
	}
}

func TestHandler_CreatePatient_BadRequest(t *testing.T) {
	h, e := newTestHandler()

	c := e.NewContext(jsonRequest(http.MethodPost, "/api/v1/patients", `{"last_name":"Pérez"}`), httptest.NewRecorder())
	expectHTTPError(t, h.CreatePatient(c), http.StatusBadRequest)
}

func TestHandler_GetPatient(t *testing.T) {
	h, e := newTestHandler()
	p := createViaService(t, h, "Ana", "Pérez")

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if err := h.GetPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetPatient_NotFound(t *testing.T) {
	h, e := newTestHandler()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	expectHTTPError(t, h.GetPatient(c), http.StatusNotFound)
}

func TestHandler_GetPatient_InvalidID(t *testing.T) {
	h, e := newTestHandler()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	expectHTTPError(t, h.GetPatient(c), http.StatusBadRequest)
}

func TestHandler_ListPatients_Search(t *testing.T) {
	h, e := newTestHandler()
	createViaService(t, h, "Ana", "Pérez")
	createViaService(t, h, "Anabel", "Ruiz")
	createViaService(t, h, "Luis", "Gómez")

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/patients?q=ana&limit=1", nil), rec)

	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		Data  []Patient `json:"data"`
		Total int       `json:"total"`
		Links struct {
			Next string `json:"next"`
		} `json:"links"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Data) != 1 {
		t.Errorf("expected 1 of 2 matches, got %d of %d", len(resp.Data), resp.Total)
	}
	if !strings.Contains(resp.Links.Next, "q=ana") || !strings.Contains(resp.Links.Next, "offset=1") {
		t.Errorf("expected next link to keep the query, got %q", resp.Links.Next)
	}
}

func TestHandler_ListPatients_EmptyIsArray(t *testing.T) {
	h, e := newTestHandler()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil), rec)
	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", rec.Body.String())
	}
}

func TestHandler_UpdateClinical(t *testing.T) {
	h, e := newTestHandler()
	p := createViaService(t, h, "Ana", "Pérez")

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, "/", `{"weight":"150 lb","height_cm":165}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if err := h.UpdateClinical(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Patient
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Clinical.HeightM == nil || *got.Clinical.HeightM != 1.65 {
		t.Errorf("expected height 1.65 m, got %v", got.Clinical.HeightM)
	}
	if got.Clinical.WeightKg == nil || *got.Clinical.WeightKg < 68 || *got.Clinical.WeightKg > 68.1 {
		t.Errorf("expected about 68 kg, got %v", got.Clinical.WeightKg)
	}
}

func TestHandler_UpdatePatient_OmittedActiveKeepsFlag(t *testing.T) {
	h, e := newTestHandler()
	p := createViaService(t, h, "Ana", "Pérez")

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, "/", `{"first_name":"Ana María","last_name":"Pérez"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.UpdatePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Patient
	json.Unmarshal(rec.Body.Bytes(), &got)
	if !got.Active || got.FirstName != "Ana María" {
		t.Errorf("expected an active Ana María, got %+v", got)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(jsonRequest(http.MethodPut, "/", `{"first_name":"Ana","last_name":"Pérez","active":false}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.UpdatePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Active {
		t.Error("expected an explicit active=false to deactivate")
	}
}

func TestHandler_UpdateClinical_EmptyRecord(t *testing.T) {
	h, e := newTestHandler()
	p := createViaService(t, h, "Ana", "Pérez")

	c := e.NewContext(jsonRequest(http.MethodPut, "/", `{}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	expectHTTPError(t, h.UpdateClinical(c), http.StatusBadRequest)
}

func TestHandler_DeletePatient(t *testing.T) {
	h, e := newTestHandler()
	p := createViaService(t, h, "Ana", "Pérez")

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.DeletePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	expectHTTPError(t, h.DeletePatient(c), http.StatusNotFound)
}
