package kodi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// closeGrace bounds the time spent delivering the close frame during teardown.
const closeGrace = 500 * time.Millisecond

// Conn defines the interface for the Kodi JSON-RPC WebSocket client
type Conn interface {
	Connect() error
	Close() error
	IsConnected() bool
	Call(method string, params any, timeout time.Duration) (json.RawMessage, error)
	GetApplicationVersion(timeout time.Duration) (*Version, error)
	ExecuteAddon(addonID, command string, timeout time.Duration) error
	SetDisconnectHandler(handler func(error))
}

// Client implements Conn over a single WebSocket connection to Kodi's
// /jsonrpc endpoint. Multiple calls may be in flight concurrently; responses
// are matched to callers by request id.
type Client struct {
	host   string
	port   int
	logger *zap.Logger

	conn      *websocket.Conn
	connected bool
	connMu    sync.Mutex // guards the connect/close transition only
	writeMu   sync.Mutex // protects websocket writes

	nextID    int
	nextIDMu  sync.Mutex
	pending   map[int]chan Response
	pendingMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	onDisconnect func(error)
}

// NewClient creates a new Kodi client. Connect must be called before any calls.
func NewClient(host string, port int, logger *zap.Logger) *Client {
	return &Client{
		host:    host,
		port:    port,
		logger:  logger,
		pending: make(map[int]chan Response),
	}
}

// SetDisconnectHandler registers a callback for unexpected connection loss.
// Safe to call at any time, though callers normally set it before Connect.
func (c *Client) SetDisconnectHandler(handler func(error)) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	c.onDisconnect = handler
}

// Connect dials ws://host:port/jsonrpc. Calling Connect on an already
// connected client is a no-op. Only one physical connect can be in flight
// at a time.
func (c *Client) Connect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.host == "" {
		return ErrNoAddress
	}

	if c.connected {
		return nil
	}

	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(c.host, strconv.Itoa(c.port)),
		Path:   "/jsonrpc",
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", u.String(), err)
	}

	c.conn = conn
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.connected = true
	c.logger.Info("Connected to Kodi", zap.String("url", u.String()))

	// Start background message receiver
	go c.readLoop(conn, c.ctx)

	return nil
}

// Close shuts down the connection and unblocks any in-flight calls with
// ErrClosed. Safe to call multiple times.
func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if !c.connected {
		return nil
	}

	c.connected = false
	c.cancel()

	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGrace))
	c.writeMu.Unlock()

	c.conn.Close()
	c.conn = nil

	c.logger.Info("Disconnected from Kodi")
	return nil
}

// IsConnected returns true if the client currently holds an open connection.
func (c *Client) IsConnected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.connected
}

// nextRequestID returns the next request id, unique among outstanding requests.
func (c *Client) nextRequestID() int {
	c.nextIDMu.Lock()
	defer c.nextIDMu.Unlock()
	c.nextID++
	return c.nextID
}

// Call issues a JSON-RPC request and blocks until the matching response
// arrives, the timeout elapses, or the client is closed. A response arriving
// after the timeout is silently discarded.
func (c *Client) Call(method string, params any, timeout time.Duration) (json.RawMessage, error) {
	c.connMu.Lock()
	if !c.connected {
		c.connMu.Unlock()
		return nil, ErrNotConnected
	}
	conn := c.conn
	ctx := c.ctx
	c.connMu.Unlock()

	id := c.nextRequestID()
	req := Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      id,
	}

	respChan := make(chan Response, 1)
	c.pendingMu.Lock()
	c.pending[id] = respChan
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	c.writeMu.Lock()
	err := conn.WriteJSON(req)
	c.writeMu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("failed to send %s request: %w", method, err)
	}

	select {
	case resp := <-respChan:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("%s: %w", method, ErrTimeout)
	case <-ctx.Done():
		return nil, ErrClosed
	}
}

// readLoop receives frames for the lifetime of one connection and routes
// responses to waiting callers. Frames without an id (Kodi notifications)
// and responses for ids no longer pending are dropped.
func (c *Client) readLoop(conn *websocket.Conn, ctx context.Context) {
	for {
		var resp Response
		if err := conn.ReadJSON(&resp); err != nil {
			select {
			case <-ctx.Done():
				// Expected: Close tore down the connection.
				return
			default:
			}
			c.logger.Warn("Connection to Kodi lost", zap.Error(err))
			c.handleDisconnect(err)
			return
		}

		if resp.ID == nil {
			continue
		}

		c.pendingMu.Lock()
		if ch, ok := c.pending[*resp.ID]; ok {
			select {
			case ch <- resp:
			default:
			}
		} else {
			c.logger.Debug("Discarding response with no pending request",
				zap.Int("id", *resp.ID))
		}
		c.pendingMu.Unlock()
	}
}

// handleDisconnect tears down state after an unexpected connection loss and
// notifies the disconnect handler. Reconnection is left to the caller.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	if !c.connected {
		c.connMu.Unlock()
		return
	}
	c.connected = false
	c.cancel()
	c.conn.Close()
	c.conn = nil
	handler := c.onDisconnect
	c.connMu.Unlock()

	if handler != nil {
		handler(err)
	}
}

// GetApplicationVersion queries Application.GetProperties for the version property.
func (c *Client) GetApplicationVersion(timeout time.Duration) (*Version, error) {
	result, err := c.Call("Application.GetProperties",
		getPropertiesParams{Properties: []string{"version"}}, timeout)
	if err != nil {
		return nil, err
	}

	var props applicationProperties
	if err := json.Unmarshal(result, &props); err != nil {
		return nil, fmt.Errorf("failed to unmarshal application properties: %w", err)
	}
	if props.Version == nil {
		return nil, fmt.Errorf("application properties missing version")
	}

	return props.Version, nil
}

// ExecuteAddon relays a command string to the given Kodi addon.
func (c *Client) ExecuteAddon(addonID, command string, timeout time.Duration) error {
	_, err := c.Call("Addons.ExecuteAddon",
		executeAddonParams{AddonID: addonID, Params: addonParams{Command: command}}, timeout)
	return err
}
