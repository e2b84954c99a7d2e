package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	pkgauth "github.com/nayhtetaung/feedledger-backend/pkg/auth"
	"github.com/nayhtetaung/feedledger-backend/pkg/config"
	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "dev"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Issuer = "feedledger-test"
	cfg.JWT.ExpirationMinutes = 15
	return cfg
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(Deps{
		Config:   testConfig(),
		Registry: prometheus.NewRegistry(),
	})
}

func bearerToken(t *testing.T, role enums.MemberRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(testConfig().JWT, time.Now(), pkgauth.AccessTokenPayload{
		CallerID: uuid.New(),
		Role:     role,
		JTI:      uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthLive(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["status"] != "live" {
		t.Fatalf("expected live status, got %#v", envelope.Data)
	}
	if rec.Header().Get("X-FeedLedger-Env") != "dev" {
		t.Fatalf("expected env header")
	}
}

func TestMetricsEndpointMounted(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	router := testRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/parties"},
		{http.MethodPost, "/api/v1/sales"},
		{http.MethodGet, "/api/v1/products"},
	}
	for _, tc := range paths {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestWithdrawRequiresOwnerRole(t *testing.T) {
	router := testRouter(t)
	target := "/api/v1/parties/" + uuid.NewString() + "/withdraw"

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader("{}"))
	req.Header.Set("Authorization", bearerToken(t, enums.MemberRoleStaff))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff withdraw: expected 403 got %d", rec.Code)
	}

	// An owner clears the role gate and reaches body validation.
	req = httptest.NewRequest(http.MethodPost, target, strings.NewReader("{}"))
	req.Header.Set("Authorization", bearerToken(t, enums.MemberRoleOwner))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("owner withdraw with empty body: expected 400 got %d", rec.Code)
	}
}

func TestDiscountRemovalRequiresOwnerRole(t *testing.T) {
	router := testRouter(t)
	target := "/api/v1/batches/" + uuid.NewString() + "/discounts/" + uuid.NewString()

	req := httptest.NewRequest(http.MethodDelete, target, nil)
	req.Header.Set("Authorization", bearerToken(t, enums.MemberRoleStaff))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff discount removal: expected 403 got %d", rec.Code)
	}
}
