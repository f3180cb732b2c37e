package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/dchest/captcha"

	"payflow/auth"
	"payflow/db"
	"payflow/logger"
	"payflow/models"
	"payflow/store"
)

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	ip := getClientIP(r)
	if !s.signupLimiter.Allow(ip) {
		writeError(w, r, http.StatusTooManyRequests, "TooManyAttempts")
		return
	}
	s.signupLimiter.RecordFailure(ip)

	in, err := decodeInput(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequestBody")
		return
	}
	username := in.str("username")
	password := in.raw("password")
	if username == "" || password == "" {
		writeError(w, r, http.StatusBadRequest, "UsernamePasswordRequired")
		return
	}
	if err := auth.ValidatePassword(password); err != nil {
		writeError(w, r, http.StatusBadRequest, "PasswordTooShort")
		return
	}
	var email *string
	if e := in.str("email"); e != "" {
		if err := auth.ValidateEmail(e); err != nil {
			writeError(w, r, http.StatusBadRequest, "InvalidEmail")
			return
		}
		email = &e
	}
	if s.cfg.SignupCaptcha && !captcha.VerifyString(in.str("captcha_id"), in.str("captcha_solution")) {
		writeError(w, r, http.StatusBadRequest, "InvalidCaptcha")
		return
	}

	hash, err := db.HashPassword(password)
	if err != nil {
		serverError(w, r, err)
		return
	}
	id, err := s.store.CreateUser(r.Context(), username, email, hash)
	switch {
	case errors.Is(err, store.ErrUsernameTaken):
		writeError(w, r, http.StatusBadRequest, "UsernameAlreadyExists")
		return
	case errors.Is(err, store.ErrEmailTaken):
		writeError(w, r, http.StatusBadRequest, "EmailAlreadyExists")
		return
	case err != nil:
		serverError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).WithComponent(logger.ComponentAuth).Info("user signed up", logger.FieldUserID, id)
	success(w, http.StatusCreated, map[string]any{"id": id})
}

// authenticate checks username and password under the login limiter. On
// failure it has already written the response.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	ip := getClientIP(r)
	if !s.loginLimiter.Allow(ip) {
		writeError(w, r, http.StatusTooManyRequests, "TooManyAttempts")
		return models.User{}, false
	}

	in, err := decodeInput(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequestBody")
		return models.User{}, false
	}
	username := in.str("username")
	password := in.raw("password")

	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		serverError(w, r, err)
		return models.User{}, false
	}

	// Compare against a dummy hash for unknown users so both paths cost the same.
	targetHash := user.PasswordHash
	if err != nil {
		targetHash = db.DummyHash()
	}
	match := db.CheckPasswordHash(password, targetHash)

	if err != nil || !match {
		s.loginLimiter.RecordFailure(ip)
		logger.FromContext(r.Context()).WithComponent(logger.ComponentAuth).Warn("login failed",
			logger.FieldClientIP, ip)
		writeError(w, r, http.StatusUnauthorized, "InvalidCredentials")
		return models.User{}, false
	}
	s.loginLimiter.Reset(ip)
	return user, true
}

func identityOf(u models.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Username: u.Username, Email: u.EmailOrEmpty()}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	id := identityOf(user)
	if err := s.auth.SetSession(w, r, id); err != nil {
		serverError(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{"user": id})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.ClearSession(w, r); err != nil {
		serverError(w, r, err)
		return
	}
	success(w, http.StatusOK, nil)
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	token, expires, err := s.auth.IssueToken(identityOf(user))
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": expires.UTC().Format(time.RFC3339),
	})
}

func (s *Server) newCaptcha(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"captcha_id": captcha.New()})
}
