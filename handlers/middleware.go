package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/cors"
	"github.com/gorilla/csrf"

	"payflow/auth"
	"payflow/logger"
)

const csrfHeader = "X-CSRF-Token"

// SecurityHeadersMiddleware sets response headers for a JSON API. Responses
// are never cached, except captcha images which set their own headers.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		if !strings.HasPrefix(r.URL.Path, "/captcha/") {
			h.Set("Cache-Control", "no-store")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", csrfHeader, logger.RequestIDHeader},
		ExposedHeaders:   []string{logger.RequestIDHeader},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}

// csrfMiddleware protects cookie-authenticated requests. Requests carrying a
// bearer token are exempt since browsers never attach one on their own.
func (s *Server) csrfMiddleware() func(http.Handler) http.Handler {
	protect := csrf.Protect(s.keys.CSRF,
		csrf.Secure(s.cfg.SecureCookies),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.RequestHeader(csrfHeader),
		csrf.TrustedOrigins(trustedHosts(s.cfg.AllowedOrigins)),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Warn("CSRF check failed",
				logger.FieldPath, r.URL.Path,
				logger.FieldError, csrf.FailureReason(r),
			)
			writeError(w, r, http.StatusForbidden, "InvalidCSRF")
		})),
	)
	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.cfg.SecureCookies {
				r = csrf.PlaintextHTTPRequest(r)
			}
			if _, ok := auth.BearerToken(r); ok {
				r = csrf.UnsafeSkipCheck(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

// trustedHosts turns CORS origins into the host list gorilla/csrf expects.
func trustedHosts(origins []string) []string {
	var hosts []string
	for _, o := range origins {
		if o == "*" || o == "" {
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}

func (s *Server) csrfToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": csrf.Token(r)})
}
