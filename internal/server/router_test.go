package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/config"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/db"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrateAll(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(gdb, config.Load())
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t)
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	h := newTestHandler(t)
	for _, path := range []string{
		"/profile",
		"/health-logs",
		"/ranking",
		"/group-calendar",
		"/cycle-logs",
		"/drugs/search",
		"/health-context",
	} {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401 got %d", path, w.Code)
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestHandler(t)
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID response header")
	}

	r = httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("X-Request-ID", "req-abc")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if got := w.Header().Get("X-Request-ID"); got != "req-abc" {
		t.Fatalf("inbound id not echoed, got %q", got)
	}
}

func TestSignupEndToEnd(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"email":"e2e@example.com","password":"supersecret"}`))
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("signup: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie set")
	}

	// the fresh session opens protected routes
	r = httptest.NewRequest(http.MethodGet, "/profile", nil)
	r.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("profile: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
}
