package kodi

import (
	"encoding/json"
	"sync"
	"time"
)

// MockClient implements Conn for testing the connection supervisor without
// a real WebSocket.
type MockClient struct {
	mu           sync.Mutex
	connected    bool
	connectErr   error
	callErr      error
	version      *Version
	commands     []AddonCommand
	connects     int
	onDisconnect func(error)
}

// AddonCommand records an ExecuteAddon call for test verification.
type AddonCommand struct {
	AddonID string
	Command string
	Time    time.Time
}

// NewMockClient creates a new mock Kodi client.
func NewMockClient() *MockClient {
	return &MockClient{
		version: &Version{Major: 18, Minor: 2, Revision: "abc123"},
	}
}

// SetConnectError makes subsequent Connect calls fail with err.
func (m *MockClient) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
}

// SetCallError makes subsequent calls fail with err.
func (m *MockClient) SetCallError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callErr = err
}

// SetVersion sets the version returned by GetApplicationVersion.
func (m *MockClient) SetVersion(v *Version) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version = v
}

// Connect simulates opening the connection.
func (m *MockClient) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connects++
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}

// Close simulates closing the connection.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// IsConnected returns the simulated connection state.
func (m *MockClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// ConnectAttempts returns how many times Connect has been called.
func (m *MockClient) ConnectAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connects
}

// Call simulates a JSON-RPC call; it fails when disconnected or when a call
// error has been injected.
func (m *MockClient) Call(method string, params any, timeout time.Duration) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil, ErrNotConnected
	}
	if m.callErr != nil {
		return nil, m.callErr
	}
	return json.RawMessage(`"OK"`), nil
}

// GetApplicationVersion returns the configured mock version.
func (m *MockClient) GetApplicationVersion(timeout time.Duration) (*Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil, ErrNotConnected
	}
	if m.callErr != nil {
		return nil, m.callErr
	}
	return m.version, nil
}

// ExecuteAddon records the command for later verification.
func (m *MockClient) ExecuteAddon(addonID, command string, timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}
	if m.callErr != nil {
		return m.callErr
	}
	m.commands = append(m.commands, AddonCommand{
		AddonID: addonID,
		Command: command,
		Time:    time.Now(),
	})
	return nil
}

// SetDisconnectHandler stores the handler for SimulateDisconnect.
func (m *MockClient) SetDisconnectHandler(handler func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnect = handler
}

// SimulateDisconnect drops the simulated connection and fires the
// disconnect handler, as the real client does on a remote close.
func (m *MockClient) SimulateDisconnect(err error) {
	m.mu.Lock()
	m.connected = false
	handler := m.onDisconnect
	m.mu.Unlock()

	if handler != nil {
		handler(err)
	}
}

// Commands returns all recorded addon commands.
func (m *MockClient) Commands() []AddonCommand {
	m.mu.Lock()
	defer m.mu.Unlock()

	commands := make([]AddonCommand, len(m.commands))
	copy(commands, m.commands)
	return commands
}

// ClearCommands resets the recorded command log.
func (m *MockClient) ClearCommands() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = nil
}
