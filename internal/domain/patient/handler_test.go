package patient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mediqueue/mediqueue/internal/platform/datastore"
)

func newTestHandler() (*Handler, *Service, *echo.Echo) {
	svc, _, _ := newTestService()
	return NewHandler(svc, datastore.StaticGate(true)), svc, echo.New()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestHandler_LookupPrescriptions_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/?uid=cln1-nobody", nil)
	rec := httptest.NewRecorder()

	if err := h.LookupPrescriptions(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["data"] != nil || body["error"] != "Patient not found" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestHandler_LookupPrescriptions_Empty(t *testing.T) {
	h, svc, e := newTestHandler()
	p := registerAsha(t, svc)
	req := httptest.NewRequest(http.MethodGet, "/?uid="+strings.ToLower(p.UID), nil)
	rec := httptest.NewRecorder()

	h.LookupPrescriptions(e.NewContext(req, rec))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decode(t, rec)["data"].(map[string]interface{})
	if data["message"] != NoPrescriptionsMessage {
		t.Errorf("unexpected message %v", data["message"])
	}
	if list, ok := data["prescriptions"].([]interface{}); !ok || len(list) != 0 {
		t.Errorf("expected empty prescriptions array, got %v", data["prescriptions"])
	}
}

func TestHandler_LookupPrescriptions_Unconfigured(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc, datastore.StaticGate(false))
	req := httptest.NewRequest(http.MethodGet, "/?uid=CLN1-X", nil)
	rec := httptest.NewRecorder()

	h.LookupPrescriptions(echo.New().NewContext(req, rec))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestHandler_CreatePatient(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Asha","phone":"9876543210"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	h.CreatePatient(e.NewContext(req, rec))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decode(t, rec)["data"].(map[string]interface{})
	if !strings.HasPrefix(data["uid"].(string), "CLN1-") {
		t.Errorf("unexpected uid %v", data["uid"])
	}
}

func TestHandler_CreatePatient_BadBody(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.CreatePatient(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 HTTPError, got %v", err)
	}
}

func TestHandler_ListPatients(t *testing.T) {
	h, svc, e := newTestHandler()
	registerAsha(t, svc)
	svc.Register(context.Background(), Registration{Name: "Ravi", Phone: "9123456780"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients?q=asha&limit=10", nil)
	rec := httptest.NewRecorder()
	h.ListPatients(e.NewContext(req, rec))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["total"] != float64(1) || body["limit"] != float64(10) {
		t.Errorf("unexpected page %v", body)
	}
	if items := body["data"].([]interface{}); len(items) != 1 {
		t.Errorf("expected 1 match, got %d", len(items))
	}
}

func TestHandler_DownloadPrescription(t *testing.T) {
	h, svc, e := newTestHandler()
	p := registerAsha(t, svc)
	rx, _ := svc.RecordHistory(context.Background(), p.UID, HistoryEntry{Prescription: "ORS"})

	req := httptest.NewRequest(http.MethodGet, "/?uid="+p.UID, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(rx.ID.String())

	if err := h.DownloadPrescription(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.HasPrefix(cd, `attachment; filename="prescription_Asha_Rao_`) {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "PRESCRIPTION:\nORS") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_DownloadPrescription_BadID(t *testing.T) {
	h, _, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.DownloadPrescription(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_DownloadReport_Inline(t *testing.T) {
	h, svc, e := newTestHandler()
	p := registerAsha(t, svc)
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("uid")
	c.SetParamValues(p.UID)

	h.DownloadReport(c)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/html") {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get(echo.HeaderContentType))
	}
	if rec.Header().Get(echo.HeaderContentDisposition) != "" {
		t.Error("inline report should not be an attachment")
	}
}

func TestHandler_RecordHistory(t *testing.T) {
	h, svc, e := newTestHandler()
	p := registerAsha(t, svc)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"diagnosis":"Sprain","notes":"ice"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("uid")
	c.SetParamValues(p.UID)

	h.RecordHistory(c)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decode(t, rec)["data"].(map[string]interface{})
	if data["patient_uid"] != p.UID || data["diagnosis"] != "Sprain" {
		t.Errorf("unexpected body %v", data)
	}
}
