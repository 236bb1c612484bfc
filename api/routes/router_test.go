package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/socshift-backend/internal/schedule"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/config"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
	"github.com/angelmondragon/socshift-backend/pkg/metrics"
)

var jwtCfg = config.JWTConfig{Secret: "router-secret", Issuer: "socshift-local", ExpirationMinutes: 5}

type stubProfiles map[string]models.User

func (s stubProfiles) Get(ctx context.Context, id string) (*models.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &u, nil
}

type stubSchedule struct{ calls int }

func (s *stubSchedule) Generate(ctx context.Context, actor auth.Actor, req schedule.Request) (*schedule.Result, error) {
	s.calls++
	return &schedule.Result{Window: schedule.Window{From: "2026-03-03", To: "2026-03-09"}}, nil
}

func testConfig(env string) *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: env},
		Auth:     config.AuthConfig{Mode: config.AuthModeLocal},
		JWT:      jwtCfg,
		Schedule: config.ScheduleConfig{GenerateLimit: 5, GenerateWindow: time.Minute},
		CORS:     config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func newTestRouter(t *testing.T, env string, sched *stubSchedule) http.Handler {
	t.Helper()
	verifier, err := auth.NewLocalVerifier(jwtCfg)
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	reg := prometheus.NewRegistry()
	metrics.NewCoverageMetrics(reg).SetSlots("ok", 3)
	deps := Deps{
		Verifier: verifier,
		Profiles: stubProfiles{
			"admin": {ID: "admin", Name: "Root", Role: enums.UserRoleAdmin, IsAdmin: true, IsActive: true},
			"u1":    {ID: "u1", Name: "Ana", Role: enums.UserRoleAnalyst, IsActive: true},
		},
		Gatherer: reg,
	}
	if sched != nil {
		deps.Schedule = sched
	}
	return NewRouter(testConfig(env), logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error")}), deps)
}

func bearer(t *testing.T, uid string) string {
	t.Helper()
	token, err := auth.MintLocalToken(jwtCfg, time.Now(), auth.LocalToken{UserID: uid})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return "Bearer " + token
}

func serve(h http.Handler, method, path, authz, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestPublicRoutes(t *testing.T) {
	h := newTestRouter(t, "dev", nil)
	if resp := serve(h, http.MethodGet, "/health/live", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("live: %d", resp.Code)
	}
	if resp := serve(h, http.MethodGet, "/health/ready", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("ready: %d", resp.Code)
	}
	resp := serve(h, http.MethodGet, "/metrics", "", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "socshift_coverage_slots") {
		t.Fatalf("metrics: %d %s", resp.Code, resp.Body.String())
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestRouter(t, "dev", nil)
	for _, path := range []string{"/api/v1/me", "/api/v1/shifts", "/api/v1/coverage", "/api/v1/exports/csv"} {
		if resp := serve(h, http.MethodGet, path, "", ""); resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, resp.Code)
		}
	}
}

func TestAdminRoutesRejectAnalysts(t *testing.T) {
	sched := &stubSchedule{}
	h := newTestRouter(t, "dev", sched)
	analyst := bearer(t, "u1")

	cases := []struct{ method, path string }{
		{http.MethodPost, "/api/generate-schedule"},
		{http.MethodPost, "/api/users"},
		{http.MethodDelete, "/api/users/u2"},
		{http.MethodPost, "/api/v1/shifts"},
		{http.MethodPatch, "/api/v1/shifts/s1"},
		{http.MethodPost, "/api/v1/leave/l1/review"},
		{http.MethodPut, "/api/v1/shift-config"},
		{http.MethodGet, "/api/v1/activity"},
		{http.MethodGet, "/api/v1/analytics/activity"},
	}
	for _, tc := range cases {
		if resp := serve(h, tc.method, tc.path, analyst, "{}"); resp.Code != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403 got %d", tc.method, tc.path, resp.Code)
		}
	}
	if sched.calls != 0 {
		t.Fatal("generator must not run for analysts")
	}

	resp := serve(h, http.MethodPost, "/api/generate-schedule", bearer(t, "admin"), "")
	if resp.Code != http.StatusCreated || sched.calls != 1 {
		t.Fatalf("admin generate: %d calls=%d", resp.Code, sched.calls)
	}
}

func TestUnwiredServiceAnswers500(t *testing.T) {
	h := newTestRouter(t, "dev", nil)
	if resp := serve(h, http.MethodGet, "/api/v1/coverage", bearer(t, "u1"), ""); resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestDevOnlyRoutes(t *testing.T) {
	dev := newTestRouter(t, "dev", nil)
	resp := serve(dev, http.MethodPost, "/api/dev/token", "", `{"userId":"u1"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("dev token: %d %s", resp.Code, resp.Body.String())
	}

	prod := newTestRouter(t, "prod", nil)
	if resp := serve(prod, http.MethodPost, "/api/dev/token", "", `{"userId":"u1"}`); resp.Code == http.StatusCreated {
		t.Fatal("dev token must not be mounted in production")
	}
	if resp := serve(prod, http.MethodPost, "/api/add-today-shifts", bearer(t, "admin"), ""); resp.Code != http.StatusNotFound && resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("add-today-shifts in prod: %d", resp.Code)
	}
}
