package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestFail_ServerErrorLogsWithRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	lg := zerolog.New(&buf)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("requestID", "rid-502")
		c.Set("logger", &lg)
		c.Next()
	})
	r.GET("/send", func(c *gin.Context) {
		fail(c, http.StatusBadGateway, ErrCodeSendFailed, "provider down")
	})
	r.GET("/missing", func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrCodeNotFound, "nope")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/send", nil))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status=%d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er != (ErrorResponse{RequestID: "rid-502", Code: ErrCodeSendFailed, Message: "provider down"}) {
		t.Fatalf("body = %+v", er)
	}
	if !strings.Contains(buf.String(), `"code":"send_failed"`) {
		t.Fatalf("5xx not logged: %s", buf.String())
	}

	buf.Reset()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if w.Code != http.StatusNotFound || buf.Len() != 0 {
		t.Fatalf("4xx: status=%d log=%q", w.Code, buf.String())
	}
}

func TestNoContent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.DELETE("/x", noContent)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/x", nil))
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}
