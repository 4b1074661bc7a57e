package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mulchBack/utils"
)

func newAdminFixture(t *testing.T) *AdminHandler {
	t.Helper()
	tokens, err := utils.NewManager("test-signing-key")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return &AdminHandler{
		Tokens:        tokens,
		AdminEmail:    "admin@example.com",
		AdminPassword: "correct horse battery staple",
	}
}

func TestAdminLogin(t *testing.T) {
	h := newAdminFixture(t)

	body := `{"email": "admin@example.com", "password": "correct horse battery staple"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	claims, err := h.Tokens.Parse(resp["token"])
	if err != nil {
		t.Fatalf("issued token must parse: %v", err)
	}
	if claims.Subject != "admin@example.com" || claims.Role != "admin" {
		t.Errorf("claims mismatch: %+v", claims)
	}
}

func TestAdminLoginBadCredentials(t *testing.T) {
	h := newAdminFixture(t)

	for _, body := range []string{
		`{"email": "admin@example.com", "password": "wrong"}`,
		`{"email": "intruder@example.com", "password": "correct horse battery staple"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Login(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401 for %s", rec.Code, body)
		}
	}
}

func TestYearParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/orders?year=2024", nil)
	if got := yearParam(req); got != 2024 {
		t.Errorf("yearParam = %d, want 2024", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	if got := yearParam(req); got != time.Now().Year() {
		t.Errorf("yearParam default = %d, want current year", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/orders?year=banana", nil)
	if got := yearParam(req); got != time.Now().Year() {
		t.Errorf("yearParam with junk = %d, want current year", got)
	}
}
