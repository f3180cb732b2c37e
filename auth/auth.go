// Package auth resolves who is making a request, from the session cookie or
// from a bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"

	"payflow/crypto"
)

const SessionName = "payflow-session"

const MinPasswordLength = 8

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidToken     = errors.New("invalid token")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Identity is the authenticated user.
type Identity struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Authenticator struct {
	cookies  *sessions.CookieStore
	tokenKey []byte
	tokenTTL time.Duration
}

func New(keys crypto.Keys, secureCookies bool, tokenTTL time.Duration) *Authenticator {
	store := sessions.NewCookieStore(keys.CookieAuth, keys.CookieEncrypt)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	return &Authenticator{cookies: store, tokenKey: keys.Token, tokenTTL: tokenTTL}
}

// SetSession stores id in the session cookie.
func (a *Authenticator) SetSession(w http.ResponseWriter, r *http.Request, id Identity) error {
	session, _ := a.cookies.Get(r, SessionName)
	session.Values["userID"] = id.UserID
	session.Values["username"] = id.Username
	session.Values["email"] = id.Email
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (a *Authenticator) ClearSession(w http.ResponseWriter, r *http.Request) error {
	session, _ := a.cookies.Get(r, SessionName)
	session.Values = map[any]any{}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

func (a *Authenticator) sessionIdentity(r *http.Request) (Identity, bool) {
	session, err := a.cookies.Get(r, SessionName)
	if err != nil {
		return Identity{}, false
	}
	userID, ok := session.Values["userID"].(int64)
	if !ok || userID == 0 {
		return Identity{}, false
	}
	id := Identity{UserID: userID}
	id.Username, _ = session.Values["username"].(string)
	id.Email, _ = session.Values["email"].(string)
	return id, true
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[7:])
	return tok, tok != ""
}

// Identify returns the caller's identity. A bearer token, when present, takes
// precedence over the session cookie.
func (a *Authenticator) Identify(r *http.Request) (Identity, bool) {
	if tok, ok := BearerToken(r); ok {
		id, err := a.ParseToken(tok)
		return id, err == nil
	}
	return a.sessionIdentity(r)
}

type tokenClaims struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs a bearer token for id that expires after the configured TTL.
func (a *Authenticator) IssueToken(id Identity) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(a.tokenTTL)
	claims := tokenClaims{
		Username: id.Username,
		Email:    id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.tokenKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

func (a *Authenticator) ParseToken(tok string) (Identity, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tok, &claims, func(*jwt.Token) (any, error) {
		return a.tokenKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: userID, Username: claims.Username, Email: claims.Email}, nil
}

type ctxKey struct{}

func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by RequireUser.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// RequireUser rejects requests without an identity by calling deny, and
// otherwise passes the identity down in the request context.
func (a *Authenticator) RequireUser(deny http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := a.Identify(r)
			if !ok {
				deny(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
		})
	}
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}
