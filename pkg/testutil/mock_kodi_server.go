// Package testutil provides testing utilities for the kodicec daemon,
// centered on a mock Kodi JSON-RPC WebSocket server for integration tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// connWrapper wraps a WebSocket connection with its write mutex.
type connWrapper struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// request mirrors the JSON-RPC request frames the client sends.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      int             `json:"id"`
}

// response mirrors the JSON-RPC response frames Kodi sends.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int            `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type executeAddonParams struct {
	AddonID string `json:"addonid"`
	Params  struct {
		Command string `json:"command"`
	} `json:"params"`
}

// AddonCall records an Addons.ExecuteAddon request for test verification.
type AddonCall struct {
	Timestamp time.Time
	AddonID   string
	Command   string
}

// MockKodiServer simulates Kodi's JSON-RPC WebSocket endpoint at /jsonrpc.
// It answers Application.GetProperties and Addons.ExecuteAddon and offers
// failure knobs: withholding responses, rejecting connections, and forced
// disconnects.
type MockKodiServer struct {
	server *httptest.Server

	mu            sync.Mutex
	connections   []*connWrapper
	major, minor  int
	revision      string
	addonCalls    []AddonCall
	holdResponses bool
	rejectDials   bool
	dialAttempts  int
}

// NewMockKodiServer starts a mock server on an ephemeral port.
func NewMockKodiServer() *MockKodiServer {
	s := &MockKodiServer{
		major:    18,
		minor:    2,
		revision: "abc123",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/jsonrpc", s.handleWebSocket)
	s.server = httptest.NewServer(mux)

	return s
}

// Target returns the host and port a client should connect to.
func (s *MockKodiServer) Target() (string, int) {
	u, err := url.Parse(s.server.URL)
	if err != nil {
		panic(fmt.Sprintf("mock kodi server has invalid URL: %v", err))
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		panic(fmt.Sprintf("mock kodi server has invalid port: %v", err))
	}
	return u.Hostname(), port
}

// Close shuts the server down, dropping all connections.
func (s *MockKodiServer) Close() {
	s.CloseConnections()
	s.server.Close()
}

// SetVersion sets the application version reported to health checks.
func (s *MockKodiServer) SetVersion(major, minor int, revision string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.major, s.minor, s.revision = major, minor, revision
}

// SetHoldResponses makes the server read requests without ever answering,
// so client calls run into their timeout.
func (s *MockKodiServer) SetHoldResponses(hold bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdResponses = hold
}

// SetRejectConnections makes new WebSocket dials fail, simulating Kodi
// being down while the HTTP listener stays up.
func (s *MockKodiServer) SetRejectConnections(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectDials = reject
}

// DialAttempts returns how many WebSocket dials the server has seen.
func (s *MockKodiServer) DialAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialAttempts
}

// CloseConnections force-drops every open connection, as a Kodi restart
// would.
func (s *MockKodiServer) CloseConnections() {
	s.mu.Lock()
	conns := s.connections
	s.connections = nil
	s.mu.Unlock()

	for _, wrapper := range conns {
		wrapper.conn.Close()
	}
}

// AddonCalls returns all recorded Addons.ExecuteAddon requests.
func (s *MockKodiServer) AddonCalls() []AddonCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]AddonCall, len(s.addonCalls))
	copy(calls, s.addonCalls)
	return calls
}

// ClearAddonCalls resets the recorded addon call log.
func (s *MockKodiServer) ClearAddonCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addonCalls = nil
}

func (s *MockKodiServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.dialAttempts++
	reject := s.rejectDials
	s.mu.Unlock()

	if reject {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	wrapper := &connWrapper{conn: conn}

	s.mu.Lock()
	s.connections = append(s.connections, wrapper)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		for i, w := range s.connections {
			if w == wrapper {
				s.connections = append(s.connections[:i], s.connections[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		s.mu.Lock()
		hold := s.holdResponses
		s.mu.Unlock()
		if hold {
			continue
		}

		switch req.Method {
		case "Application.GetProperties":
			s.handleGetProperties(wrapper, &req)
		case "Addons.ExecuteAddon":
			s.handleExecuteAddon(wrapper, &req)
		default:
			s.writeError(wrapper, req.ID, -32601, "Method not found")
		}
	}
}

func (s *MockKodiServer) handleGetProperties(wrapper *connWrapper, req *request) {
	s.mu.Lock()
	result := fmt.Sprintf(`{"version":{"major":%d,"minor":%d,"revision":%q}}`,
		s.major, s.minor, s.revision)
	s.mu.Unlock()

	s.writeResult(wrapper, req.ID, json.RawMessage(result))
}

func (s *MockKodiServer) handleExecuteAddon(wrapper *connWrapper, req *request) {
	var params executeAddonParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(wrapper, req.ID, -32602, "Invalid params")
		return
	}

	s.mu.Lock()
	s.addonCalls = append(s.addonCalls, AddonCall{
		Timestamp: time.Now(),
		AddonID:   params.AddonID,
		Command:   params.Params.Command,
	})
	s.mu.Unlock()

	s.writeResult(wrapper, req.ID, json.RawMessage(`"OK"`))
}

func (s *MockKodiServer) writeResult(wrapper *connWrapper, id int, result json.RawMessage) {
	wrapper.writeMu.Lock()
	defer wrapper.writeMu.Unlock()
	wrapper.conn.WriteJSON(response{JSONRPC: "2.0", ID: &id, Result: result})
}

func (s *MockKodiServer) writeError(wrapper *connWrapper, id, code int, message string) {
	wrapper.writeMu.Lock()
	defer wrapper.writeMu.Unlock()
	wrapper.conn.WriteJSON(response{
		JSONRPC: "2.0",
		ID:      &id,
		Error:   &rpcError{Code: code, Message: message},
	})
}
