// Package cec supervises the connection to one Kodi instance and relays
// CEC remote-control commands to its JSON-CEC addon.
package cec

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"kodicec/internal/clock"
	"kodicec/internal/kodi"

	"go.uber.org/zap"
)

const (
	// AddonID is the Kodi addon CEC commands are relayed to.
	AddonID = "script.json-cec"

	// CommandRefresh is a host-side pseudo-command: it clears any pending
	// display value and triggers no network action.
	CommandRefresh = "refresh"

	// reasonNoAddress is reported when the host is not configured.
	reasonNoAddress = "No network address specified"
)

const (
	defaultRefreshInterval = 10 * time.Second
	firstTickDelay         = time.Second
	defaultCallTimeout     = 5 * time.Second
)

// Handler runs the periodic connection check for one Kodi device. It is the
// only writer of the device's reachability status: every refresh interval it
// either attempts a (re)connect while offline or issues a lightweight version
// query while online. A failed health check marks the device offline and
// closes the socket; the reconnect happens on the next tick, never in a
// tight loop.
type Handler struct {
	client      kodi.Conn
	clock       clock.Clock
	logger      *zap.Logger
	refresh     time.Duration
	callTimeout time.Duration

	mu       sync.Mutex
	status   Status
	reason   string
	version  string
	listener StatusListener
	started  bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewHandler creates a handler supervising the given client. A non-positive
// refresh interval falls back to the 10s default.
func NewHandler(client kodi.Conn, refresh time.Duration, logger *zap.Logger) *Handler {
	if refresh <= 0 {
		refresh = defaultRefreshInterval
	}
	return &Handler{
		client:      client,
		clock:       clock.NewRealClock(),
		logger:      logger.Named("cec"),
		refresh:     refresh,
		callTimeout: defaultCallTimeout,
		status:      StatusUnknown,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Name returns the plugin name.
func (h *Handler) Name() string {
	return "cec"
}

// OnStatusChange registers the reachability listener. Must be called before
// Start.
func (h *Handler) OnStatusChange(listener StatusListener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listener = listener
}

// SetCallTimeout overrides the per-request deadline used for health checks
// and commands. Must be called before Start.
func (h *Handler) SetCallTimeout(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callTimeout = d
}

// Start launches the connection check loop. The first connection attempt
// runs asynchronously; Start never blocks on network I/O.
func (h *Handler) Start() error {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return fmt.Errorf("cec handler already started")
	}
	h.started = true
	h.mu.Unlock()

	h.client.SetDisconnectHandler(h.handleDisconnect)

	h.logger.Info("Starting CEC handler",
		zap.Duration("refresh_interval", h.refresh))
	go h.run()
	return nil
}

// Stop cancels the check loop and closes the connection. Idempotent, and
// safe to call even if Start was never called or failed.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})

	// Close before waiting: the loop may be blocked inside a health check,
	// and Close fails that call immediately instead of letting it run out
	// its timeout.
	if err := h.client.Close(); err != nil {
		h.logger.Warn("Error closing Kodi client", zap.Error(err))
	}

	h.mu.Lock()
	started := h.started
	h.mu.Unlock()
	if started {
		<-h.done
	}

	// The loop may have reconnected before it saw the stop signal.
	if err := h.client.Close(); err != nil {
		h.logger.Warn("Error closing Kodi client", zap.Error(err))
	}
	h.logger.Info("CEC handler stopped")
}

// run performs the initial connection attempt, then ticks on the refresh
// interval until stopped. The first tick fires one second after startup.
func (h *Handler) run() {
	defer close(h.done)

	h.checkConnection()

	select {
	case <-h.clock.After(firstTickDelay):
	case <-h.stop:
		return
	}
	h.checkConnection()

	ticker := h.clock.NewTicker(h.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C():
			h.checkConnection()
		case <-h.stop:
			return
		}
	}
}

// checkConnection is one supervision cycle: reconnect while offline,
// health-check while online.
func (h *Handler) checkConnection() {
	if !h.client.IsConnected() {
		h.connect()
		return
	}

	version, err := h.client.GetApplicationVersion(h.callTimeout)
	if err != nil {
		h.logger.Warn("Health check failed", zap.Error(err))
		h.setStatus(StatusOffline, fmt.Sprintf("health check failed: %v", err))
		// Drop the socket so the next cycle attempts a fresh connect.
		if closeErr := h.client.Close(); closeErr != nil {
			h.logger.Warn("Error closing Kodi client", zap.Error(closeErr))
		}
		return
	}

	h.mu.Lock()
	h.version = version.String()
	h.mu.Unlock()
	h.setStatus(StatusOnline, "")
}

// connect attempts to open the connection and updates reachability from the
// outcome. All connect failures are equivalent: mark offline, retry on the
// next cycle.
func (h *Handler) connect() {
	h.logger.Debug("Trying to connect to Kodi")
	if err := h.client.Connect(); err != nil {
		if errors.Is(err, kodi.ErrNoAddress) {
			h.setStatus(StatusOffline, reasonNoAddress)
		} else {
			h.setStatus(StatusOffline, err.Error())
		}
		h.logger.Warn("Connection attempt failed", zap.Error(err))
		return
	}
	h.setStatus(StatusOnline, "")
}

// handleDisconnect reacts to an unexpected connection loss reported by the
// client. Reconnection waits for the next cycle.
func (h *Handler) handleDisconnect(err error) {
	h.setStatus(StatusOffline, fmt.Sprintf("connection lost: %v", err))
}

// setStatus records a reachability transition and notifies the listener on
// change. The cached version string is cleared whenever the device is not
// online.
func (h *Handler) setStatus(status Status, reason string) {
	h.mu.Lock()
	changed := h.status != status || h.reason != reason
	h.status = status
	h.reason = reason
	if status != StatusOnline {
		h.version = ""
	}
	listener := h.listener
	h.mu.Unlock()

	if !changed {
		return
	}
	h.logger.Info("Reachability changed",
		zap.Stringer("status", status),
		zap.String("reason", reason))
	if listener != nil {
		listener(status, reason)
	}
}

// SendCommand relays a CEC command verbatim to the JSON-CEC addon. Errors
// are returned to the caller; they do not change reachability by themselves.
// The "refresh" pseudo-command touches no network.
func (h *Handler) SendCommand(command string) error {
	if command == CommandRefresh {
		return nil
	}

	h.mu.Lock()
	timeout := h.callTimeout
	h.mu.Unlock()

	if err := h.client.ExecuteAddon(AddonID, command, timeout); err != nil {
		h.logger.Error("Failed to send CEC command",
			zap.String("command", command),
			zap.Error(err))
		return fmt.Errorf("failed to send CEC command %q: %w", command, err)
	}

	h.logger.Debug("CEC command sent", zap.String("command", command))
	return nil
}

// Status returns the current reachability.
func (h *Handler) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// OfflineReason returns the human-readable reason for the last offline
// transition, or "" while online.
func (h *Handler) OfflineReason() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reason
}

// VersionString returns the Kodi version from the last successful health
// check, formatted as "major.minor (revision)", or "" when not online.
func (h *Handler) VersionString() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.version
}
