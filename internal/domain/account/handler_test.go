package account

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medrecords/medrecords/internal/platform/auth"
)

func newTestServer(t *testing.T) (*echo.Echo, *fixture) {
	t.Helper()
	f := newFixture(t)

	issuer := auth.NewSessionIssuer(testKey, time.Hour)
	e := echo.New()
	e.Use(auth.Session(issuer, f.revoked))
	NewHandler(f.svc).RegisterRoutes(e.Group("/v1"))
	return e, f
}

func postJSON(e *echo.Echo, target, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSignUpEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	rec := postJSON(e, "/v1/auth/signup",
		`{"email":"new@example.com","password":"123456","full_name":"New User","role":"patient"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var session Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if session.Token == "" || session.RedirectPath != "/patient" {
		t.Errorf("unexpected session %+v", session)
	}
}

func TestSignUpEndpoint_Errors(t *testing.T) {
	e, _ := newTestServer(t)

	// weak password
	rec := postJSON(e, "/v1/auth/signup",
		`{"email":"a@b.c","password":"12345","full_name":"A","role":"patient"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("weak password: expected 400, got %d", rec.Code)
	}

	// duplicate email
	body := `{"email":"dup@example.com","password":"123456","full_name":"Dup","role":"doctor"}`
	if rec := postJSON(e, "/v1/auth/signup", body, ""); rec.Code != http.StatusCreated {
		t.Fatalf("first signup: expected 201, got %d", rec.Code)
	}
	if rec := postJSON(e, "/v1/auth/signup", body, ""); rec.Code != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", rec.Code)
	}
}

func TestSignInEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	postJSON(e, "/v1/auth/signup",
		`{"email":"doc@example.com","password":"123456","full_name":"Doc","role":"doctor"}`, "")

	rec := postJSON(e, "/v1/auth/signin", `{"email":"doc@example.com","password":"123456"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var session Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if session.RedirectPath != "/doctor" {
		t.Errorf("expected /doctor redirect, got %q", session.RedirectPath)
	}

	rec = postJSON(e, "/v1/auth/signin", `{"email":"doc@example.com","password":"wrong1"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", rec.Code)
	}
}

func TestSignOutEndpoint(t *testing.T) {
	e, f := newTestServer(t)

	rec := postJSON(e, "/v1/auth/signup",
		`{"email":"out@example.com","password":"123456","full_name":"Out","role":"patient"}`, "")
	var session Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decoding: %v", err)
	}

	rec = postJSON(e, "/v1/auth/signout", "", session.Token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if f.revoked.Count() != 1 {
		t.Errorf("expected one revoked token, got %d", f.revoked.Count())
	}

	// signing out again, or without a token, still succeeds
	if rec := postJSON(e, "/v1/auth/signout", "", session.Token); rec.Code != http.StatusNoContent {
		t.Errorf("repeat signout: expected 204, got %d", rec.Code)
	}
	if rec := postJSON(e, "/v1/auth/signout", "", ""); rec.Code != http.StatusNoContent {
		t.Errorf("anonymous signout: expected 204, got %d", rec.Code)
	}
}

func TestSessionEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	// anonymous
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/session", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Authenticated {
		t.Error("expected unauthenticated session")
	}

	// signed in
	signupRec := postJSON(e, "/v1/auth/signup",
		`{"email":"who@example.com","password":"123456","full_name":"Who","role":"patient"}`, "")
	var session Session
	if err := json.Unmarshal(signupRec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decoding signup: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/auth/session", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+session.Token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if !resp.Authenticated || resp.Profile == nil || resp.Profile.Email != "who@example.com" {
		t.Errorf("unexpected session response %+v", resp)
	}
}
