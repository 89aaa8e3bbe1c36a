package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kodicec/pkg/plugin"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// devicePlugin is a test double implementing the optional plugin surfaces.
type devicePlugin struct {
	name     string
	report   plugin.StatusReport
	commands []string
	sendErr  error
}

func (p *devicePlugin) Name() string { return p.name }
func (p *devicePlugin) Start() error { return nil }
func (p *devicePlugin) Stop()        {}

func (p *devicePlugin) ReportStatus() plugin.StatusReport {
	return p.report
}

func (p *devicePlugin) SendCommand(command string) error {
	if p.sendErr != nil {
		return p.sendErr
	}
	p.commands = append(p.commands, command)
	return nil
}

func newTestServer(plugins ...plugin.Plugin) *Server {
	logger, _ := zap.NewDevelopment()
	return NewServer(plugins, logger, 0)
}

func TestHandleStatus(t *testing.T) {
	p := &devicePlugin{
		name: "cec",
		report: plugin.StatusReport{
			Status:  "online",
			Version: "18.2 (abc123)",
		},
	}
	server := newTestServer(p)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	server.handleStatus(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response StatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	report, ok := response.Devices["cec"]
	require.True(t, ok)
	assert.Equal(t, "online", report.Status)
	assert.Equal(t, "18.2 (abc123)", report.Version)
	assert.Empty(t, report.Reason)
}

func TestHandleStatus_MethodNotAllowed(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/status", nil)
	w := httptest.NewRecorder()
	server.handleStatus(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleCommand(t *testing.T) {
	p := &devicePlugin{name: "cec"}
	server := newTestServer(p)

	body := strings.NewReader(`{"command": "activate"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/command", body)
	w := httptest.NewRecorder()
	server.handleCommand(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"activate"}, p.commands)
}

func TestHandleCommand_NamedPlugin(t *testing.T) {
	first := &devicePlugin{name: "cec"}
	second := &devicePlugin{name: "cec2"}
	server := newTestServer(first, second)

	body := strings.NewReader(`{"plugin": "cec2", "command": "standby"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/command", body)
	w := httptest.NewRecorder()
	server.handleCommand(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, first.commands)
	assert.Equal(t, []string{"standby"}, second.commands)
}

func TestHandleCommand_AmbiguousWithoutName(t *testing.T) {
	server := newTestServer(&devicePlugin{name: "a"}, &devicePlugin{name: "b"})

	body := strings.NewReader(`{"command": "activate"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/command", body)
	w := httptest.NewRecorder()
	server.handleCommand(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleCommand_BadRequests(t *testing.T) {
	server := newTestServer(&devicePlugin{name: "cec"})

	testCases := []struct {
		name string
		body string
		code int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing command", `{}`, http.StatusBadRequest},
		{"unknown plugin", `{"plugin": "nope", "command": "x"}`, http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/command",
				strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			server.handleCommand(w, req)

			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestHandleCommand_DeliveryFailure(t *testing.T) {
	p := &devicePlugin{name: "cec", sendErr: fmt.Errorf("timed out")}
	server := newTestServer(p)

	body := strings.NewReader(`{"command": "activate"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/command", body)
	w := httptest.NewRecorder()
	server.handleCommand(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "timed out")
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.handleHealth(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "ok", response["status"])
}

func TestHandleSitemap(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	server.handleSitemap(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "/api/command")
}
