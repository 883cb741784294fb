package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aggregation-gateway/internal/aggregator"
	"aggregation-gateway/internal/catalog"
	"aggregation-gateway/internal/common/config"
	httpclient "aggregation-gateway/internal/common/http"
	"aggregation-gateway/internal/common/logger"
	"aggregation-gateway/pkg/registry"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==========================
// Helpers
// ==========================

// newGateway starts a server whose internal targets resolve back to itself.
func newGateway(t *testing.T, timeout time.Duration, large config.LargeResourceConfig) *httptest.Server {
	t.Helper()

	cat, err := catalog.Load(context.Background(), catalog.NewFileSource(""), registry.Default(), nil)
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(nil)
	srv.Start()
	t.Cleanup(srv.Close)

	log := logger.NewTestLogger(t)
	fetcher := aggregator.NewHTTPFetcher(httpclient.NewClient(httpclient.ClientOptions{}), timeout)
	srv.Config.Handler = NewRouter(RouterConfig{
		Catalog:       cat,
		Aggregator:    aggregator.New(fetcher, log, nil, aggregator.Options{ChunkSize: 1024}),
		Resolver:      aggregator.NewResolver(srv.URL),
		DefaultMode:   config.ModeStreaming,
		LargeResource: large,
		Logger:        log,
		Version:       "test",
	})
	return srv
}

func get(t *testing.T, url string, headers map[string]string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// ==========================
// Lookup Tests
// ==========================

func TestLookup(t *testing.T) {
	srv := newGateway(t, time.Second, config.LargeResourceConfig{SyntheticBytes: 10})

	tests := []struct {
		path        string
		status      int
		body        string
		contentType string
	}{
		{"/customers/1", http.StatusOK, `{"name":"Bob","id":"1","age":"21"}`, "application/json"},
		{"/products/1", http.StatusOK, `{"name":"Heinz","id":"1","price":"100"}`, "application/json"},
		{"/customers/99", http.StatusNotFound, "customer doesn't exist", "text/plain"},
		{"/products/99", http.StatusNotFound, "product doesn't exist", "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.body, body)
			assert.Contains(t, resp.Header.Get("Content-Type"), tt.contentType)
			assert.NotEmpty(t, resp.Header.Get(headerRequestID))
		})
	}
}

func TestLookup_UnknownKindIs404(t *testing.T) {
	srv := newGateway(t, time.Second, config.LargeResourceConfig{SyntheticBytes: 10})
	resp, _ := get(t, srv.URL+"/orders/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ==========================
// Multiple Tests
// ==========================

func TestMultiple_InternalTargets(t *testing.T) {
	srv := newGateway(t, time.Second, config.LargeResourceConfig{SyntheticBytes: 10})

	for _, mode := range []string{aggregator.ModeStreaming, aggregator.ModeBuffered} {
		t.Run(mode, func(t *testing.T) {
			resp, body := get(t, srv.URL+"/multiple?bob=/customers/1&heinz=/products/1&ghost=/customers/42",
				map[string]string{headerAggregateMode: mode})

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
			assert.Equal(t, `{"bob":{"data":{"name":"Bob","id":"1","age":"21"}},`+
				`"heinz":{"data":{"name":"Heinz","id":"1","price":"100"}},`+
				`"ghost":{"error":{"status":404,"response":{"message":"customer doesn't exist"}}}}`, body)
		})
	}
}

func TestMultiple_EmptyAndSkipped(t *testing.T) {
	srv := newGateway(t, time.Second, config.LargeResourceConfig{SyntheticBytes: 10})

	resp, body := get(t, srv.URL+"/multiple", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "{}", body)

	_, body = get(t, srv.URL+"/multiple?=/customers/1&empty=&a=/customers/1&a=/products/1", nil)
	assert.Equal(t, `{"a":{"data":{"name":"Bob","id":"1","age":"21"}}}`, body)
}

func TestMultiple_ExternalTargets(t *testing.T) {
	ext := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>\n<body class=\"main\">\\o/</body>\r\n</html>"))
		case "/json-error":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte(`{"reason":"teapot"}`))
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
	defer ext.Close()

	srv := newGateway(t, time.Second, config.LargeResourceConfig{SyntheticBytes: 10})
	_, body := get(t, srv.URL+"/multiple?page="+ext.URL+"/html&tea="+ext.URL+"/json-error&missing="+ext.URL+"/x", nil)

	assert.True(t, json.Valid([]byte(body)), body)
	var decoded map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))

	assert.Equal(t, `<html><body class="main">o/</body></html>`, decoded["page"]["data"])
	assert.Equal(t, map[string]interface{}{"status": float64(418), "response": map[string]interface{}{"reason": "teapot"}}, decoded["tea"]["error"])
	assert.Equal(t, map[string]interface{}{"status": float64(404), "response": "nope\n"}, decoded["missing"]["error"])
}

func TestMultiple_TransportFailure(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	srv := newGateway(t, time.Second, config.LargeResourceConfig{SyntheticBytes: 10})
	_, body := get(t, srv.URL+"/multiple?bob=/customers/1&dead="+deadURL, nil)

	var decoded map[string]map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	errMember := decoded["dead"]["error"]
	assert.Nil(t, errMember["status"])
	assert.Contains(t, errMember["response"], "connection refused")
	assert.Contains(t, body, `"bob":{"data":{"name":"Bob"`)
}

func TestMultiple_LargeInternalResource(t *testing.T) {
	srv := newGateway(t, time.Second, config.LargeResourceConfig{Route: "/large", SyntheticBytes: 2 << 20})

	_, body := get(t, srv.URL+"/multiple?large=/large&bob=/customers/1", nil)
	require.True(t, json.Valid([]byte(body)))

	var decoded struct {
		Large struct {
			Data []map[string]interface{} `json:"data"`
		} `json:"large"`
		Bob map[string]interface{} `json:"bob"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	assert.Greater(t, len(body), 2<<20)
	assert.NotEmpty(t, decoded.Large.Data)
	assert.NotNil(t, decoded.Bob["data"])
}

// ==========================
// Large Resource Tests
// ==========================

func TestLarge_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "large.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"a":1},{"a":2}]`), 0o644))

	srv := newGateway(t, time.Second, config.LargeResourceConfig{Route: "/large", Path: path})
	resp, body := get(t, srv.URL+"/large", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, `[{"a":1},{"a":2}]`, body)
}

func TestLarge_MissingFileIs500(t *testing.T) {
	srv := newGateway(t, time.Second, config.LargeResourceConfig{Route: "/large", Path: "/does/not/exist.json"})
	resp, body := get(t, srv.URL+"/large", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "500 - Internal Error Occurred", body)
}

func TestWriteSyntheticJSON(t *testing.T) {
	for _, size := range []int64{0, 2, 100, 100000} {
		var buf bytes.Buffer
		n, err := WriteSyntheticJSON(&buf, size)
		require.NoError(t, err)
		assert.Equal(t, int64(buf.Len()), n)
		assert.GreaterOrEqual(t, n, min(size, 2))
		assert.True(t, json.Valid(buf.Bytes()))
	}
}

// ==========================
// Health, Metrics, Recovery
// ==========================

func TestHealthReadyMetrics(t *testing.T) {
	srv := newGateway(t, time.Second, config.LargeResourceConfig{SyntheticBytes: 10})

	resp, body := get(t, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, body)

	resp, body = get(t, srv.URL+"/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ready","records":{"customers":3,"products":3}}`, body)

	_, _ = get(t, srv.URL+"/customers/1", nil)
	resp, body = get(t, srv.URL+"/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(body, "gateway_http_requests_total"))
}

func TestReady_WithoutCatalog(t *testing.T) {
	r := NewRouter(RouterConfig{LargeResource: config.LargeResourceConfig{SyntheticBytes: 10}})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestID_Echoed(t *testing.T) {
	r := NewRouter(RouterConfig{LargeResource: config.LargeResourceConfig{SyntheticBytes: 10}})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(headerRequestID, "req-123")
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(headerRequestID))
}

func TestRecovery_Returns500Text(t *testing.T) {
	r := NewRouter(RouterConfig{LargeResource: config.LargeResourceConfig{SyntheticBytes: 10}})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "500 - Internal Error Occurred", rec.Body.String())
}
