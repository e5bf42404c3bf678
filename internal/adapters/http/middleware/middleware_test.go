package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/codex-employee-api/internal/adapters/http/handler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type observation struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (r *recordingObserver) ObserveHTTPRequest(method, route string, status int, seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, observation{method: method, route: route, status: status})
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	t.Parallel()

	var out syncBuffer
	log := zerolog.New(&out)

	r := gin.New()
	r.Use(RequestID(log))
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = RequestIDFrom(c)
		zerolog.Ctx(c.Request.Context()).Info().Msg("inside")
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	id := rec.Header().Get(HeaderRequestID)
	require.NotEmpty(t, id)
	assert.Len(t, id, 36)
	assert.Equal(t, id, seen)

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out.String())), &line))
	assert.Equal(t, id, line["request_id"])
}

func TestRequestID_HonoursIncomingHeader(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(RequestID(zerolog.Nop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(HeaderRequestID))
}

func TestRequestID_ReplacesUnacceptableHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
	}{
		{name: "too long", header: strings.Repeat("a", maxRequestIDLength+1)},
		{name: "control characters", header: "req\x01id"},
		{name: "non ascii", header: "リクエスト"},
	}

	r := gin.New()
	r.Use(RequestID(zerolog.Nop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(HeaderRequestID, tt.header)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		got := rec.Header().Get(HeaderRequestID)
		assert.NotEqual(t, tt.header, got, tt.name)
		assert.Len(t, got, 36, tt.name)
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, strings.Repeat("b", maxRequestIDLength))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, strings.Repeat("b", maxRequestIDLength), rec.Header().Get(HeaderRequestID))
}

func TestAccessLog_WritesOneLinePerRequest(t *testing.T) {
	t.Parallel()

	var out syncBuffer
	r := gin.New()
	r.Use(RequestID(zerolog.New(&out)), AccessLog())
	r.GET("/api/employees/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/api/employees/7", nil)
	req.Header.Set(HeaderRequestID, "req-log")
	r.ServeHTTP(httptest.NewRecorder(), req)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "GET", line["method"])
	assert.Equal(t, "/api/employees/7", line["path"])
	assert.Equal(t, "/api/employees/:id", line["route"])
	assert.Equal(t, float64(http.StatusNotFound), line["status"])
	assert.Equal(t, "req-log", line["request_id"])
	assert.Contains(t, line, "latency")
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/api/employees/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/employees/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, obs.seen, 2)
	assert.Equal(t, observation{method: "GET", route: "/api/employees/:id", status: http.StatusOK}, obs.seen[0])
	assert.Equal(t, observation{method: "GET", route: unmatchedRoute, status: http.StatusNotFound}, obs.seen[1])
}

func TestRecovery_WritesErrorBody(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	r := gin.New()
	r.Use(RequestID(zerolog.Nop()), Recovery(func() time.Time { return now }))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var details handler.ErrorDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	assert.Equal(t, handler.ErrorDetails{
		Timestamp:          "2024-04-01T00:00:00Z",
		Message:            "internal server error",
		RequestDescription: "uri=/boom",
		StatusCode:         http.StatusInternalServerError,
	}, details)
}
