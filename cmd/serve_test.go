package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"onboarding-service/internal/details"
	"onboarding-service/internal/events"
	"onboarding-service/internal/live"
	"onboarding-service/internal/roles"
	"onboarding-service/internal/session"
	"onboarding-service/internal/users"
	"onboarding-service/pkg/jwt"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	if err := jwt.Init("router-test-secret", time.Hour); err != nil {
		t.Fatal(err)
	}
	sessions := session.NewMemoryStore()
	hub := live.NewHub(zerolog.Nop())
	roleSvc := roles.NewService(sessions, nil, hub, events.Discard{}, zerolog.Nop())
	detailSvc := details.NewService(sessions, nil, hub, events.Discard{}, zerolog.Nop(), false)
	return newRouter(zerolog.Nop(), users.NewService(nil, nil), roleSvc, detailSvc, hub)
}

func get(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := get(testRouter(t), "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHomeRedirectsWithoutRole(t *testing.T) {
	r := testRouter(t)
	tok, _ := jwt.Generate("u", "u@x.io", "")

	w := get(r, "/", tok)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/onboarding/role" {
		t.Errorf("status = %d, location = %s", w.Code, w.Header().Get("Location"))
	}

	tok, _ = jwt.Generate("u", "u@x.io", "rider")
	if w := get(r, "/", tok); w.Code != http.StatusOK {
		t.Errorf("onboarded status = %d", w.Code)
	}
}

func TestScreensMounted(t *testing.T) {
	r := testRouter(t)
	tok, _ := jwt.Generate("u", "u@x.io", "")

	for _, path := range []string{"/onboarding/role", "/onboarding/details"} {
		if w := get(r, path, tok); w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d", path, w.Code)
		}
		if w := get(r, path, ""); w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s anonymous status = %d", path, w.Code)
		}
	}
}
