package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"family-lists-go/internal/config"
	"family-lists-go/internal/policy"
	"family-lists-go/internal/wire"
	"family-lists-go/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the HS256 token payload: sub is the user id.
type Claims struct {
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

type User struct {
	ID        string
	Name      string
	AvatarURL string
}

func (u User) Actor() policy.Actor {
	return policy.Actor{ID: u.ID, Name: u.Name, PhotoURL: u.AvatarURL}
}

type JWTAuth struct {
	secret   []byte
	ttl      time.Duration
	skipAuth bool
	mockUser User
	log      logger.Logger
	now      func() time.Time
}

type contextKey int

const userKey contextKey = iota

var errNoToken = errors.New("missing bearer token")

func NewJWTAuth(cfg config.AuthConfig, log logger.Logger) *JWTAuth {
	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &JWTAuth{
		secret:   []byte(cfg.JWTSecret),
		ttl:      ttl,
		skipAuth: cfg.SkipAuth,
		mockUser: User{
			ID:        strings.TrimSpace(cfg.MockUserID),
			Name:      strings.TrimSpace(cfg.MockUserName),
			AvatarURL: strings.TrimSpace(cfg.MockUserAvatar),
		},
		log: logger.OrNop(log),
		now: time.Now,
	}
}

// IssueToken signs a token for user; used by tooling and tests.
func (a *JWTAuth) IssueToken(user User) (string, error) {
	if len(a.secret) == 0 {
		return "", fmt.Errorf("jwt secret not configured")
	}
	now := a.now()
	claims := Claims{
		Name:    user.Name,
		Picture: user.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *JWTAuth) ParseToken(tokenString string) (User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return User{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return User{}, fmt.Errorf("invalid token")
	}
	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return User{}, fmt.Errorf("token without subject")
	}
	return User{ID: userID, Name: claims.Name, AvatarURL: claims.Picture}, nil
}

// Middleware rejects requests without a valid token.
func (a *JWTAuth) Middleware(next http.Handler) http.Handler {
	return a.handler(next, true)
}

// Optional lets anonymous requests through; a bad token is still rejected.
func (a *JWTAuth) Optional(next http.Handler) http.Handler {
	return a.handler(next, false)
}

func (a *JWTAuth) handler(next http.Handler, required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skipAuth {
			if a.mockUser.ID == "" {
				writeError(w, http.StatusInternalServerError, "auth_not_configured", "auth mock user id not configured")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), a.mockUser)))
			return
		}

		user, err := a.authenticate(r)
		if errors.Is(err, errNoToken) && !required {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			a.log.BusinessError("auth.middleware: rejected token", err, "path", r.URL.Path)
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (a *JWTAuth) authenticate(r *http.Request) (User, error) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		// Browsers cannot set headers on websocket upgrades.
		token = strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	if token == "" {
		return User{}, errNoToken
	}
	if len(a.secret) == 0 {
		return User{}, fmt.Errorf("jwt secret not configured")
	}
	return a.ParseToken(token)
}

func bearerToken(value string) (string, bool) {
	parts := strings.Fields(value)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
}

func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (User, bool) {
	value := ctx.Value(userKey)
	user, ok := value.(User)
	if !ok || user.ID == "" {
		return User{}, false
	}
	return user, true
}

// ActorFromContext returns the caller, or the anonymous actor.
func ActorFromContext(ctx context.Context) policy.Actor {
	user, ok := UserFromContext(ctx)
	if !ok {
		return policy.Actor{}
	}
	return user.Actor()
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(wire.Envelope[any]{Code: code, Message: message})
}
