package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
)

func newTestServer(svc *Service) *echo.Echo {
	e := echo.New()
	NewHandler(svc).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func doRequest(e *echo.Echo, method, path, body string, roles ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithUser(req.Context(), "test-user", roles...))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreatePhysicianEndpoint(t *testing.T) {
	svc, _, _, _ := newTestService()
	e := newTestServer(svc)

	rec := doRequest(e, http.MethodPost, "/api/v1/physicians",
		`{"first_name":"Gregory","last_name":"House"}`, "admin")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var p Physician
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Specialty != DefaultSpecialty {
		t.Errorf("specialty = %q, want default", p.Specialty)
	}

	rec = doRequest(e, http.MethodGet, "/api/v1/physicians/"+p.ID.String(), "", "physician")
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d, want 200", rec.Code)
	}
}

func TestCreatePhysicianRequiresRole(t *testing.T) {
	svc, _, _, _ := newTestService()
	e := newTestServer(svc)

	rec := doRequest(e, http.MethodPost, "/api/v1/physicians",
		`{"first_name":"Gregory","last_name":"House"}`, "physician")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCreateInternWithoutMentorEndpoint(t *testing.T) {
	svc, _, _, _ := newTestService()
	e := newTestServer(svc)

	rec := doRequest(e, http.MethodPost, "/api/v1/physicians",
		`{"first_name":"New","last_name":"Intern","is_intern":true}`, "admin")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestGetUnknownPatientEndpoint(t *testing.T) {
	svc, _, _, _ := newTestService()
	e := newTestServer(svc)

	rec := doRequest(e, http.MethodGet, "/api/v1/patients/2c3edc7e-9c95-4af1-b4a6-6dd1b0c2a7a1", "", "registrar")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}
