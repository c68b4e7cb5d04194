package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Avenger11764/duo-learning/internal/clock"
	"github.com/Avenger11764/duo-learning/internal/model"
	"github.com/Avenger11764/duo-learning/internal/profile"
)

var (
	ErrUnknownProfile     = errors.New("unknown profile")
	ErrCredentialMismatch = errors.New("credential mismatch")
	ErrInvalidToken       = errors.New("invalid session token")
)

// Service is the identity capability: it exchanges a profile id (plus its
// optional opaque credential) for a signed session token. The core never
// interprets the token beyond its subject claim.
type Service struct {
	profiles *profile.Repo
	clock    clock.Clock
	logger   *log.Logger

	secret     []byte
	cookieName string
	sessionTTL time.Duration
}

func NewService(profiles *profile.Repo, c clock.Clock, logger *log.Logger, sessionTTL time.Duration) *Service {
	if c == nil {
		c = clock.RealClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &Service{
		profiles:   profiles,
		clock:      c,
		logger:     logger,
		secret:     loadSecret(logger),
		cookieName: "duolearn_session",
		sessionTTL: sessionTTL,
	}
}

func loadSecret(logger *log.Logger) []byte {
	if s := strings.TrimSpace(os.Getenv("DUOLEARN_JWT_SECRET")); s != "" {
		return []byte(s)
	}
	// Ephemeral secret: sessions do not survive a restart without an
	// explicit DUOLEARN_JWT_SECRET.
	var b [32]byte
	if _, err := rand.Read(b[:]); err == nil {
		logger.Printf("[security] DUOLEARN_JWT_SECRET unset, using an ephemeral signing key")
		return []byte(hex.EncodeToString(b[:]))
	}
	return []byte("duolearn-dev-secret")
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// Login performs the opaque credential equality gate and issues a session
// token. There is no lockout policy; a mismatch is just rejected.
func (s *Service) Login(ctx context.Context, profileID model.ProfileID, credential string) (string, time.Time, error) {
	err := s.profiles.CheckCredential(ctx, profileID, credential)
	if err == profile.ErrNotFound {
		return "", time.Time{}, ErrUnknownProfile
	}
	if err == profile.ErrCredentialMismatch {
		return "", time.Time{}, ErrCredentialMismatch
	}
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.clock.Now()
	exp := now.Add(s.sessionTTL)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(profileID),
			Issuer:    "duolearn",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

func (s *Service) validate(tokenString string) (model.ProfileID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return model.ProfileID(claims.Subject), nil
}

// AuthenticateRequest accepts the session cookie or a bearer token.
func (s *Service) AuthenticateRequest(r *http.Request) (model.ProfileID, bool) {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); strings.HasPrefix(h, "Bearer ") {
		if id, err := s.validate(strings.TrimPrefix(h, "Bearer ")); err == nil {
			return id, true
		}
	}
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	id, err := s.validate(cookie.Value)
	if err != nil {
		return "", false
	}
	return id, true
}

func (s *Service) SetSessionCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Service) ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireAPI rejects unauthenticated requests and resolves the view mode
// for authenticated ones.
func (s *Service) RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.AuthenticateRequest(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "unauthorized"})
			return
		}
		ctx := withViewContext(r.Context(), ViewFromRequest(r, id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
