package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/nayhtetaung/feedledger-backend/pkg/auth"
	"github.com/nayhtetaung/feedledger-backend/pkg/config"
	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "feedledger-test",
		ExpirationMinutes: 15,
	}
}

func mintToken(t *testing.T, cfg config.JWTConfig, callerID uuid.UUID, role enums.MemberRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
		CallerID: callerID,
		Role:     role,
		JTI:      uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthRejectsMissingCredentials(t *testing.T) {
	mw := Auth(testJWTConfig(), nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/parties", nil)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without credentials")
	}
}

func TestAuthRejectsMalformedToken(t *testing.T) {
	mw := Auth(testJWTConfig(), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/parties", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsCallerContext(t *testing.T) {
	cfg := testJWTConfig()
	callerID := uuid.New()
	token := mintToken(t, cfg, callerID, enums.MemberRoleOwner)

	mw := Auth(cfg, nil)
	var gotCaller, gotRole string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCaller = CallerIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/parties", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotCaller != callerID.String() {
		t.Fatalf("expected caller %s got %s", callerID, gotCaller)
	}
	if gotRole != string(enums.MemberRoleOwner) {
		t.Fatalf("expected role owner got %s", gotRole)
	}
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole(string(enums.MemberRoleOwner), nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/parties", nil)
	req = req.WithContext(WithRole(req.Context(), string(enums.MemberRoleStaff)))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run for wrong role")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/parties", nil)
	req = req.WithContext(WithRole(req.Context(), string(enums.MemberRoleOwner)))
	resp = httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if !handlerCalled {
		t.Fatalf("handler should run for matching role")
	}
}
