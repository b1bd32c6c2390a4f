package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"family-lists-go/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

func newTestAuth() *JWTAuth {
	return NewJWTAuth(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}, nil)
}

func echoUser(t *testing.T, seen *User) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := UserFromContext(r.Context()); ok {
			*seen = user
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestIssueAndParseToken(t *testing.T) {
	auth := newTestAuth()
	token, err := auth.IssueToken(User{ID: "u1", Name: "Ann", AvatarURL: "https://img/ann.png"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	user, err := auth.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if user.ID != "u1" || user.Name != "Ann" || user.AvatarURL != "https://img/ann.png" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestParseTokenRejectsOtherSecretAndExpired(t *testing.T) {
	auth := newTestAuth()
	other := NewJWTAuth(config.AuthConfig{JWTSecret: "other-secret"}, nil)
	token, err := other.IssueToken(User{ID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatalf("expected signature error")
	}

	auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := auth.IssueToken(User{ID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	auth.now = time.Now
	if _, err := auth.ParseToken(expired); err == nil {
		t.Fatalf("expected expired token error")
	}
}

func TestParseTokenRejectsNoneAlgorithm(t *testing.T) {
	auth := newTestAuth()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.ParseToken(signed); err == nil {
		t.Fatalf("expected alg none to be rejected")
	}
}

func TestMiddlewareRequiresToken(t *testing.T) {
	auth := newTestAuth()
	var seen User
	handler := auth.Middleware(echoUser(t, &seen))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	token, _ := auth.IssueToken(User{ID: "u1"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || seen.ID != "u1" {
		t.Fatalf("expected authenticated call, got %d %+v", rec.Code, seen)
	}
}

func TestOptionalAllowsAnonymousButRejectsBadToken(t *testing.T) {
	auth := newTestAuth()
	var seen User
	handler := auth.Optional(echoUser(t, &seen))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent || seen.ID != "" {
		t.Fatalf("expected anonymous pass, got %d %+v", rec.Code, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}
}

func TestQueryTokenFallback(t *testing.T) {
	auth := newTestAuth()
	token, _ := auth.IssueToken(User{ID: "ws-user"})
	var seen User

	rec := httptest.NewRecorder()
	auth.Middleware(echoUser(t, &seen)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ws?access_token="+token, nil))
	if rec.Code != http.StatusNoContent || seen.ID != "ws-user" {
		t.Fatalf("expected query token to authenticate, got %d %+v", rec.Code, seen)
	}
}

func TestSkipAuthUsesMockUser(t *testing.T) {
	auth := NewJWTAuth(config.AuthConfig{SkipAuth: true, MockUserID: "dev", MockUserName: "Dev"}, nil)
	var seen User

	rec := httptest.NewRecorder()
	auth.Middleware(echoUser(t, &seen)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent || seen.ID != "dev" || seen.Name != "Dev" {
		t.Fatalf("expected mock user, got %d %+v", rec.Code, seen)
	}
}
