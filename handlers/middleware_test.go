package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payflow/config"
)

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := SecurityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	expected := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
		"Cache-Control":          "no-store",
	}
	for key, value := range expected {
		assert.Equal(t, value, rr.Header().Get(key), key)
	}
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/captcha/abc.png", nil))
	assert.NotContains(t, rr.Header().Get("Cache-Control"), "no-store")
}

func TestHealthAndNotFound(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	w := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = c.do(http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", errorOf(t, w))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.AllowedOrigins = []string{"http://example.com"} })

	req := httptest.NewRequest(http.MethodOptions, "/api/jobs", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	assert.Equal(t, "http://example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/jobs", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCSRFProtection(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.CSRFEnabled = true })
	c := env.newClient()

	w := c.do(http.MethodPost, "/signup", map[string]string{"username": "alice", "password": testPassword})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Invalid CSRF token", errorOf(t, w))

	w = c.do(http.MethodGet, "/api/csrf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[map[string]string](t, w)["csrf_token"]
	require.NotEmpty(t, token)

	c.headers[csrfHeader] = token
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/signup",
		map[string]string{"username": "alice", "password": testPassword}).Code)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/login",
		map[string]string{"username": "alice", "password": testPassword}).Code)
	assert.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/jobs", map[string]any{"name": "Cafe"}).Code)

	delete(c.headers, csrfHeader)
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodPost, "/api/jobs", map[string]any{"name": "Bakery"}).Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/jobs", nil).Code, "safe methods need no token")

	// Bearer clients are exempt.
	tokenClient := env.newClient()
	tokenClient.headers[csrfHeader] = token
	tokenClient.cookies = c.cookies
	w = tokenClient.do(http.MethodPost, "/api/token", map[string]string{"username": "alice", "password": testPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	api := env.newClient()
	api.token = decode[map[string]string](t, w)["token"]
	assert.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/jobs", map[string]any{"name": "Library"}).Code)
}

func TestAPIRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.APIRate = 0.001
		c.APIBurst = 2
	})
	c := env.newClient()

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/csrf", nil).Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/csrf", nil).Code)
	w := c.do(http.MethodGet, "/api/csrf", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests", errorOf(t, w))

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health", nil).Code, "only /api is limited")
	assert.Equal(t, http.StatusOK, env.newClient().do(http.MethodGet, "/api/csrf", nil).Code, "limits are per IP")
}

func TestRateLimiter(t *testing.T) {
	limiter := newRateLimiter()
	ip := "127.0.0.1"

	assert.True(t, limiter.Allow(ip))

	for i := 0; i < maxAttempts-1; i++ {
		limiter.RecordFailure(ip)
	}
	assert.True(t, limiter.Allow(ip), "allowed below the threshold")

	limiter.RecordFailure(ip)
	assert.False(t, limiter.Allow(ip), "blocked at the threshold")

	limiter.Reset(ip)
	assert.True(t, limiter.Allow(ip))
}

func TestRateLimiterExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newRateLimiter()
	limiter.now = func() time.Time { return now }
	ip := "10.1.1.1"

	for i := 0; i < maxAttempts-1; i++ {
		limiter.RecordFailure(ip)
	}
	now = now.Add(windowDuration + time.Second)
	limiter.RecordFailure(ip)
	assert.True(t, limiter.Allow(ip), "failures outside the window start a new count")

	for i := 0; i < maxAttempts; i++ {
		limiter.RecordFailure(ip)
	}
	assert.False(t, limiter.Allow(ip))
	now = now.Add(blockDuration + time.Second)
	assert.True(t, limiter.Allow(ip), "block lifts after blockDuration")
}

func TestRateLimiterParallel(t *testing.T) {
	limiter := newRateLimiter()
	ip := "10.0.0.1"

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter.RecordFailure(ip)
		}()
	}
	wg.Wait()

	assert.False(t, limiter.Allow(ip))
}

func TestDecodeInput(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(
		`{"s":" text ","n":12.5,"ns":"7","f":3.9,"bad":"x","null":null,"obj":{"a":1},"items":[{"q":1},{"q":"2"}]}`))
	req.Header.Set("Content-Type", "application/json")
	in, err := decodeInput(req)
	require.NoError(t, err)

	assert.Equal(t, "text", in.str("s"))
	assert.Equal(t, " text ", in.raw("s"))
	assert.Equal(t, "12.5", in.str("n"))
	assert.Equal(t, "", in.str("obj"))
	assert.False(t, in.has("null"))
	assert.False(t, in.has("missing"))

	n, ok := in.number("ns")
	assert.True(t, ok)
	assert.Equal(t, 7.0, n)
	_, ok = in.number("bad")
	assert.False(t, ok)
	assert.Equal(t, 4.0, in.numberOr("bad", 4))

	i, ok := in.integer("f")
	assert.True(t, ok)
	assert.Equal(t, int64(3), i, "JSON numbers are truncated")
	_, ok = in.integer("n")
	assert.True(t, ok)
	_, ok = in.integer("bad")
	assert.False(t, ok)

	items, isArray, err := in.objects("items")
	require.NoError(t, err)
	assert.True(t, isArray)
	require.Len(t, items, 2)
	q, _ := items[1].integer("q")
	assert.Equal(t, int64(2), q)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`[1,2]`))
	_, err = decodeInput(req)
	assert.ErrorIs(t, err, errInvalidBody)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	in, err = decodeInput(req)
	require.NoError(t, err)
	assert.Empty(t, in)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`a=1&b=two`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	in, err = decodeInput(req)
	require.NoError(t, err)
	a, ok := in.integer("a")
	assert.True(t, ok)
	assert.Equal(t, int64(1), a)
	assert.Equal(t, "two", in.str("b"))
}
