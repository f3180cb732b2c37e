// Package handlers exposes the JSON HTTP API.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/dchest/captcha"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"payflow/auth"
	"payflow/config"
	"payflow/crypto"
	"payflow/logger"
	"payflow/store"
)

// Server holds the dependencies shared by every handler.
type Server struct {
	cfg   config.Config
	store *store.Store
	auth  *auth.Authenticator
	keys  crypto.Keys
	log   *logger.Logger

	loginLimiter  *rateLimiter
	signupLimiter *rateLimiter
	apiLimiter    *ipLimiter

	now func() time.Time
}

func NewServer(cfg config.Config, st *store.Store, a *auth.Authenticator, keys crypto.Keys, log *logger.Logger) *Server {
	return &Server{
		cfg:           cfg,
		store:         st,
		auth:          a,
		keys:          keys,
		log:           log,
		loginLimiter:  newRateLimiter(),
		signupLimiter: newRateLimiter(),
		apiLimiter:    newIPLimiter(cfg.APIRate, cfg.APIBurst),
		now:           time.Now,
	}
}

// Routes builds the router with every middleware applied.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(logger.Middleware(s.log))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeadersMiddleware)
	r.Use(s.corsMiddleware())
	if s.cfg.CSRFEnabled {
		r.Use(s.csrfMiddleware())
	}
	r.Use(s.apiRateLimit)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NotFound")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed")
	})

	r.Get("/health", s.health)
	r.Post("/signup", s.signup)
	r.Post("/login", s.login)
	r.Get("/logout", s.logout)
	r.Post("/api/token", s.issueToken)
	r.Get("/api/csrf", s.csrfToken)
	r.Get("/captcha/new", s.newCaptcha)
	r.Handle("/captcha/*", captcha.Server(captcha.StdWidth, captcha.StdHeight))

	r.Group(func(r chi.Router) {
		r.Use(s.auth.RequireUser(notLoggedIn))
		r.Use(s.requireAccount)

		r.Get("/api/profile", s.profile)
		r.Post("/account/change_email", s.changeEmail)
		r.Post("/account/change_password", s.changePassword)
		r.Post("/account/delete", s.deleteAccount)

		r.Get("/api/jobs", s.listJobs)
		r.Post("/api/jobs", s.createJob)
		r.Delete("/api/jobs/{id}", s.deleteJob)

		r.Get("/api/shifts", s.listShifts)
		r.Post("/api/shifts", s.createShift)
		r.Delete("/api/shifts/{id}", s.deleteShift)

		r.Get("/api/expenses", s.listExpenses)
		r.Post("/api/expenses", s.createExpense)
		r.Delete("/api/expenses/{id}", s.deleteExpense)

		r.Get("/api/budgets", s.listBudgets)
		r.Post("/api/budgets", s.upsertBudget)
		r.Delete("/api/budgets/{id}", s.deleteBudget)

		r.Get("/api/receipts", s.listReceipts)
		r.Post("/api/receipts", s.createReceipt)
		r.Get("/api/receipts/{id}/pdf", s.receiptDocument)
		r.Delete("/api/receipts/{id}", s.deleteReceipt)

		r.Get("/api/report", s.report)
		r.Get("/api/export", s.exportShifts)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("health check failed", logger.FieldError, err)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func notLoggedIn(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusUnauthorized, "NotLoggedIn")
}

// requireAccount rejects identities whose user row no longer exists. Sessions
// and tokens are stateless, so both outlive a deleted account.
func (s *Server) requireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.FromContext(r.Context())
		_, err := s.store.GetUser(r.Context(), id.UserID)
		if errors.Is(err, store.ErrNotFound) {
			logger.FromContext(r.Context()).WithComponent(logger.ComponentAuth).
				Info("identity for deleted user rejected", logger.FieldUserID, id.UserID)
			if _, bearer := auth.BearerToken(r); !bearer {
				s.auth.ClearSession(w, r)
			}
			notLoggedIn(w, r)
			return
		}
		if err != nil {
			serverError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
