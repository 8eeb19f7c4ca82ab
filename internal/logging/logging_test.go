package logging

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/larkspur-kitchen/rewards/internal/config"
	log "github.com/sirupsen/logrus"
)

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if _, err := Setup(config.LoggingConfig{Level: "chatty"}); err == nil {
		t.Fatalf("expected level error")
	}
}

func TestSetupWritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WRITABLE_PATH", dir)
	closer, err := Setup(config.LoggingConfig{Level: "info", Format: "json", File: "logs/rewards.log", MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	log.Info("hello from test")
	if errClose := closer.Close(); errClose != nil {
		t.Fatalf("close: %v", errClose)
	}
	log.SetOutput(os.Stdout)

	data, errRead := os.ReadFile(filepath.Join(dir, "logs", "rewards.log"))
	if errRead != nil {
		t.Fatalf("read log file: %v", errRead)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Fatalf("log line missing from %q", data)
	}
}

func TestGinLoggerMasksQuery(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinLogger())
	router.GET("/v0/front/profile/stream", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/v0/front/profile/stream?access_token=abcdefghijkl", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	if strings.Contains(buf.String(), "abcdefghijkl") {
		t.Fatalf("token leaked into log: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "abcd...ijkl") {
		t.Fatalf("masked token missing: %s", buf.String())
	}
}
