package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IanTiba/unbox-surprise-gifts/internal/config"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func runRequestWithMiddleware(t *testing.T, middleware gin.HandlerFunc, path string, status int) *httptest.ResponseRecorder {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware)
	router.GET("/*path", func(c *gin.Context) {
		c.Status(status)
	})

	responseRecorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(responseRecorder, req)

	return responseRecorder
}

func TestRequestLoggerMasksQuerySecrets(t *testing.T) {
	var buf bytes.Buffer
	original := log.StandardLogger().Out
	log.SetOutput(&buf)
	defer log.SetOutput(original)

	responseRecorder := runRequestWithMiddleware(t, RequestLogger(), "/v0/front/boxes/x?token=abcdef123456&page=2", http.StatusBadRequest)
	if responseRecorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", responseRecorder.Code)
	}

	line := buf.String()
	if strings.Contains(line, "abcdef123456") {
		t.Fatalf("expected token to be masked, got %q", line)
	}
	if !strings.Contains(line, "status=400") || !strings.Contains(line, "page=2") {
		t.Fatalf("expected status and plain params in log line, got %q", line)
	}
}

func TestEngineServesMetricsAndMedia(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	if errWrite := os.MkdirAll(filepath.Join(dir, "images"), 0o755); errWrite != nil {
		t.Fatalf("mkdir: %v", errWrite)
	}
	if errWrite := os.WriteFile(filepath.Join(dir, "images", "a.txt"), []byte("hi"), 0o644); errWrite != nil {
		t.Fatalf("write: %v", errWrite)
	}
	engine := NewEngine(EngineOptions{MediaDir: dir, MediaPrefix: "/media"})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/media/images/a.txt", nil))
	if w.Code != http.StatusOK || w.Body.String() != "hi" {
		t.Fatalf("expected media file, got %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := NewEngine(EngineOptions{CORS: config.CORSConfig{AllowOrigins: []string{"https://unbox.example"}}})
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://unbox.example")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://unbox.example" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unknown origin, got %d", w.Code)
	}
}
