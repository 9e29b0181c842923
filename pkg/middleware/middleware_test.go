package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID_GeneratesNew(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	headerID := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, headerID)
	assert.Equal(t, headerID, w.Body.String())
}

func TestRequestID_UsesExisting(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "existing-request-id-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "existing-request-id-123", w.Body.String())
}

func TestSession_MintsAndEchoes(t *testing.T) {
	r := gin.New()
	r.Use(Session(SessionConfig{CookieName: "sid", MaxAge: time.Hour}))
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetSessionID(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	id := w.Body.String()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, w.Header().Get(SessionIDHeader))
	assert.Contains(t, w.Header().Get("Set-Cookie"), "sid="+id)
}

func TestSession_PrefersHeaderThenCookie(t *testing.T) {
	r := gin.New()
	r.Use(Session(SessionConfig{CookieName: "sid"}))
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetSessionID(c))
	})

	headerID := uuid.NewString()
	cookieID := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(SessionIDHeader, headerID)
	req.AddCookie(&http.Cookie{Name: "sid", Value: cookieID})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, headerID, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: cookieID})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, cookieID, w.Body.String())
}

func TestSession_RejectsMalformedID(t *testing.T) {
	r := gin.New()
	r.Use(Session(SessionConfig{}))
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetSessionID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(SessionIDHeader, "../../etc/passwd")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.NotEqual(t, "../../etc/passwd", w.Body.String())
}

func TestCORS_AllowedOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173"}))
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173"}))
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		in      string
		limit   int64
		period  time.Duration
		wantErr bool
	}{
		{"10-1m", 10, time.Minute, false},
		{"5-30s", 5, 30 * time.Second, false},
		{"100-2h", 100, 2 * time.Hour, false},
		{"10", 0, 0, true},
		{"x-1m", 0, 0, true},
		{"10-1d", 0, 0, true},
		{"10-m", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			rate, err := ParseRate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.limit, rate.Limit)
			assert.Equal(t, tt.period, rate.Period)
		})
	}
}

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	limit, err := RateLimit(RateLimitConfig{Rate: "2-1m", RouteID: "test"})
	require.NoError(t, err)

	r := gin.New()
	r.Use(Session(SessionConfig{}), limit)
	r.POST("/login", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	sessionID := uuid.NewString()
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.Header.Set(SessionIDHeader, sessionID)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis { return &fakeRedis{data: map[string]string{}} }

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func idempotencyRouter(store RedisClient, calls *int, status int) *gin.Engine {
	return idempotencyRouterWith(IdempotencyConfig{Redis: store}, calls, status)
}

func idempotencyRouterWith(cfg IdempotencyConfig, calls *int, status int) *gin.Engine {
	r := gin.New()
	r.Use(Session(SessionConfig{}), Idempotency(cfg))
	r.POST("/submit", func(c *gin.Context) {
		*calls++
		c.JSON(status, gin.H{"call": *calls})
	})
	return r
}

func postSubmit(r *gin.Engine, sessionID, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(body))
	req.Header.Set(SessionIDHeader, sessionID)
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysCompletedResponse(t *testing.T) {
	calls := 0
	r := idempotencyRouter(newFakeRedis(), &calls, http.StatusCreated)
	sid := uuid.NewString()

	first := postSubmit(r, sid, "k1", `{"a":1}`)
	second := postSubmit(r, sid, "k1", `{"a":1}`)

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestIdempotency_KeyReusedWithDifferentBody(t *testing.T) {
	calls := 0
	r := idempotencyRouter(newFakeRedis(), &calls, http.StatusOK)
	sid := uuid.NewString()

	postSubmit(r, sid, "k1", `{"a":1}`)
	w := postSubmit(r, sid, "k1", `{"a":2}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotency_WithoutKeyPassesThrough(t *testing.T) {
	calls := 0
	r := idempotencyRouter(newFakeRedis(), &calls, http.StatusOK)
	sid := uuid.NewString()

	postSubmit(r, sid, "", `{}`)
	postSubmit(r, sid, "", `{}`)

	assert.Equal(t, 2, calls)
}

func TestIdempotency_ServerErrorNotCached(t *testing.T) {
	calls := 0
	store := newFakeRedis()
	r := idempotencyRouter(store, &calls, http.StatusBadGateway)
	sid := uuid.NewString()

	postSubmit(r, sid, "k1", `{}`)
	postSubmit(r, sid, "k1", `{}`)

	assert.Equal(t, 2, calls)
}

func TestIdempotency_ScopedPerSession(t *testing.T) {
	calls := 0
	r := idempotencyRouter(newFakeRedis(), &calls, http.StatusOK)

	postSubmit(r, uuid.NewString(), "k1", `{}`)
	postSubmit(r, uuid.NewString(), "k1", `{}`)

	assert.Equal(t, 2, calls)
}

func TestIdempotency_RejectsOversizedBody(t *testing.T) {
	calls := 0
	store := newFakeRedis()
	r := idempotencyRouterWith(IdempotencyConfig{Redis: store, MaxBodyBytes: 16}, &calls, http.StatusOK)
	sid := uuid.NewString()

	w := postSubmit(r, sid, "k1", strings.Repeat("x", 64))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "PAYLOAD_TOO_LARGE")
	assert.Equal(t, 0, calls)
	assert.Empty(t, store.data)

	// within the limit the handler sees the full body
	var seen string
	r2 := gin.New()
	r2.Use(Session(SessionConfig{}), Idempotency(IdempotencyConfig{Redis: newFakeRedis(), MaxBodyBytes: 16}))
	r2.POST("/submit", func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		seen = string(b)
		c.Status(http.StatusOK)
	})
	w = postSubmit(r2, sid, "k2", `{"a":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"a":1}`, seen)
}
