package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(target string) *gin.Engine {
	r := gin.New()
	r.POST("/token", NewProxy(target, time.Second, zap.NewNop()).Forward)
	return r
}

func TestForward_RelaysRequestAndResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "username=alice&password=pw", string(body))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "/token?x=1", r.URL.RequestURI())
		assert.NotEmpty(t, r.Header.Get("X-Forwarded-For"))
		assert.Empty(t, r.Header.Get("Proxy-Authorization"))

		w.Header().Add("Set-Cookie", "a=1")
		w.Header().Add("Set-Cookie", "b=2")
		w.Header().Set("X-Request-Id", "req-1")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"token":"t","token_type":"bearer"}`))
	}))
	defer upstream.Close()

	req := httptest.NewRequest(http.MethodPost, "/token?x=1", strings.NewReader("username=alice&password=pw"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Proxy-Authorization", "Basic secret")
	w := httptest.NewRecorder()
	newRouter(upstream.URL).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"a=1", "b=2"}, w.Header().Values("Set-Cookie"))
	assert.Equal(t, "req-1", w.Header().Get("X-Request-Id"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"token":"t","token_type":"bearer"}`, w.Body.String())
}

func TestForward_PassesUpstreamErrorsThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
	}))
	defer upstream.Close()

	w := httptest.NewRecorder()
	newRouter(upstream.URL).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/token", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	assert.JSONEq(t, `{"detail":"Invalid credentials"}`, w.Body.String())
}

func TestForward_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	target := upstream.URL
	upstream.Close()

	w := httptest.NewRecorder()
	newRouter(target).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/token", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"detail":"Service unavailable"}`, w.Body.String())
}
