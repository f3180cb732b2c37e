package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"payflow/auth"
	"payflow/config"
	"payflow/crypto"
	"payflow/db"
	"payflow/logger"
	"payflow/store"
)

// Friday.
var fixedNow = time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)

const testPassword = "password123"

type testEnv struct {
	t       *testing.T
	srv     *Server
	handler http.Handler
	store   *store.Store
	db      *db.DB
	nextIP  int
}

func newTestEnv(t *testing.T, configure ...func(*config.Config)) *testEnv {
	t.Helper()
	d, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	cfg := config.Default()
	cfg.SessionKey = "test-secret-key-for-api-handlers-test"
	cfg.CSRFEnabled = false
	cfg.APIRate = 0
	for _, c := range configure {
		c(&cfg)
	}

	keys := crypto.NewKeys(cfg.SessionKey)
	st := store.New(d)
	log := logger.New(logger.Config{Level: slog.LevelError, Output: io.Discard})
	srv := NewServer(cfg, st, auth.New(keys, false, time.Hour), keys, log)
	srv.now = func() time.Time { return fixedNow }

	return &testEnv{t: t, srv: srv, handler: srv.Routes(), store: st, db: d}
}

// client is a user agent with its own IP address and cookie jar.
type client struct {
	env     *testEnv
	ip      string
	cookies map[string]*http.Cookie
	token   string
	headers map[string]string
}

func (e *testEnv) newClient() *client {
	e.nextIP++
	return &client{
		env:     e,
		ip:      fmt.Sprintf("10.0.%d.%d", e.nextIP/250, e.nextIP%250+1),
		cookies: map[string]*http.Cookie{},
		headers: map[string]string{},
	}
}

func (c *client) send(req *http.Request) *httptest.ResponseRecorder {
	req.RemoteAddr = c.ip + ":40000"
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	c.env.handler.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return w
}

// do sends body as JSON when it is not nil.
func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.env.t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req)
}

func (c *client) form(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req)
}

// signup registers username from a fresh client and logs it in.
func (e *testEnv) signup(username string) *client {
	e.t.Helper()
	c := e.newClient()
	w := c.do(http.MethodPost, "/signup", map[string]string{"username": username, "password": testPassword})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	w = c.do(http.MethodPost, "/login", map[string]string{"username": username, "password": testPassword})
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	return c
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

func idOf(t *testing.T, w *httptest.ResponseRecorder) int64 {
	t.Helper()
	body := decode[map[string]any](t, w)
	id, ok := body["id"].(float64)
	require.True(t, ok, w.Body.String())
	return int64(id)
}
