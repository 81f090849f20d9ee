package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/JDRQlabs/LLM-Chatbot/internal/api/middleware"
)

// captureLog redirects the global logger into a buffer for the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestLogger_EmitsTenantAndRequestFields(t *testing.T) {
	buf := captureLog(t)

	handler := middleware.TenantExtractor(middleware.Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chatbots", nil)
	req.Header.Set("X-Tenant-ID", "org-7")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	for _, want := range []string{
		`"tenant":"org-7"`,
		`"method":"GET"`,
		`"path":"/api/v1/chatbots"`,
		`"status":200`,
		`"bytes":2`,
	} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %s:\n%s", want, line)
		}
	}
}

func TestLogger_ElevatesErrorResponses(t *testing.T) {
	cases := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "info"},
		{http.StatusNotFound, "warn"},
		{http.StatusInternalServerError, "error"},
	}
	for _, tc := range cases {
		buf := captureLog(t)
		handler := middleware.Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if line := buf.String(); !strings.Contains(line, `"level":"`+tc.level+`"`) {
			t.Errorf("status %d: log level != %s:\n%s", tc.status, tc.level, line)
		}
	}
}
