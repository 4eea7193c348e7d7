package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/ucouncil/portal/backend/go-services/internal/config"
	"github.com/ucouncil/portal/backend/go-services/internal/editing"
	"github.com/ucouncil/portal/backend/go-services/internal/models"
	"github.com/ucouncil/portal/backend/go-services/internal/oidc"
	"github.com/ucouncil/portal/backend/go-services/internal/tokens"
	"github.com/ucouncil/portal/backend/go-services/internal/users"
)

const testSecret = "server-test-secret-32-bytes-xxxxxxx"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	cfg.Editing.LeaseTTL = 10 * time.Minute
	cfg.Editing.SweepInterval = time.Minute
	cfg.Editing.SweepLockKey = "council:lease-sweep"
	return cfg
}

func bearer(t *testing.T, cfg *config.Config, sub, name string) string {
	t.Helper()
	raw, err := tokens.GenerateAccessToken(cfg, &models.User{Sub: sub, Name: name}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + raw
}

func call(h http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_AuthenticatedEditFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	svc := users.NewService(users.NewMemoryUserRepository())
	srv := NewServer(Options{
		Config:   cfg,
		Stores:   MemoryStores(),
		Users:    svc,
		Verifier: oidc.NewHMACVerifier(testSecret),
		Started:  time.Now(),
	})
	h := srv.Engine
	sec := bearer(t, cfg, "sec-1", "Ama Mensah")
	tre := bearer(t, cfg, "tre-1", "Kofi Boateng")

	require.Equal(t, http.StatusUnauthorized, call(h, "GET", "/api/v1/memorandums", "", "").Code)

	// /me registers the member so denials can show their name
	w := call(h, "GET", "/api/v1/me", sec, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Ama Mensah")

	w = call(h, "POST", "/api/v1/memorandums", sec, `{"fields":{"title":"Budget"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Document editing.Document `json:"document"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Document.ID

	w = call(h, "POST", "/api/v1/memorandums/acquire-priority", sec, `{"documentId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(h, "POST", "/api/v1/memorandums/acquire-priority", tre, `{"documentId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var denied editing.LeaseResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &denied))
	require.False(t, denied.Granted)
	require.Equal(t, "sec-1", denied.CurrentHolder)
	require.Equal(t, "Ama Mensah", denied.CurrentHolderName)

	w = call(h, "POST", "/api/v1/memorandums/save", sec, `{"documentId":"`+id+`","version":1,"fields":{"title":"Budget 2025"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(h, "GET", "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `council_content_save_total{kind="memorandum",outcome="saved"} 1`)
}

func TestServer_WithoutVerifierUsesBodyUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := NewServer(Options{Config: testConfig(), Stores: MemoryStores(), Started: time.Now()})
	h := srv.Engine

	w := call(h, "GET", "/api/v1/me", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "authentication not configured")

	w = call(h, "POST", "/api/v1/handbook", "", `{"userId":"clerk","fields":{}}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = call(h, "OPTIONS", "/api/v1/handbook", "", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	require.Equal(t, http.StatusOK, call(h, "GET", "/health", "", "").Code)
	require.Equal(t, http.StatusOK, call(h, "GET", "/swagger/doc.json", "", "").Code)
}

func TestServer_SweeperUsesRedisGuard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ticks := make(chan time.Time)
	srv := NewServer(Options{
		Config:  testConfig(),
		Stores:  MemoryStores(),
		Redis:   client,
		Started: time.Now(),
		Ticker:  func(time.Duration) (<-chan time.Time, func()) { return ticks, func() {} },
	})
	srv.Sweeper.Start(context.Background())
	ticks <- time.Now()
	ticks <- time.Now() // accepted only once the first pass has finished
	srv.Sweeper.Stop()

	require.True(t, mr.Exists("council:lease-sweep"))
	ttl := mr.TTL("council:lease-sweep")
	require.Equal(t, 54*time.Second, ttl)
}

func TestServer_RateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	srv := NewServer(Options{Config: cfg, Stores: MemoryStores(), Started: time.Now()})

	require.Equal(t, http.StatusOK, call(srv.Engine, "GET", "/health", "", "").Code)
	require.Equal(t, http.StatusTooManyRequests, call(srv.Engine, "GET", "/health", "", "").Code)
}
