// Package plugin provides the plugin interfaces and registry for the
// kodicec daemon. Plugins register themselves with the global registry
// from init() functions, allowing compile-time selection and override of
// implementations.
package plugin

// Plugin is the core interface every device plugin must implement.
type Plugin interface {
	// Name returns the unique identifier for this plugin.
	Name() string

	// Start begins the plugin's operation: connects to its device,
	// starts background goroutines. Start must return quickly and not
	// block on network I/O.
	Start() error

	// Stop shuts the plugin down: stops background goroutines and
	// releases resources. Stop must be safe to call even if Start
	// failed or was never called.
	Stop()
}

// CommandSender is an optional interface for plugins that relay
// remote-control commands to their device.
type CommandSender interface {
	// SendCommand forwards a free-text command to the device. Errors
	// are returned to the caller for surfacing; they do not by
	// themselves change the device's reachability.
	SendCommand(command string) error
}

// StatusReport is a snapshot of a device's reachability.
type StatusReport struct {
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Version string `json:"version,omitempty"`
}

// StatusReporter is an optional interface for plugins that expose device
// reachability to the host.
type StatusReporter interface {
	ReportStatus() StatusReport
}

// Factory creates a new plugin instance given a context. Factories are
// registered with the registry and called during startup.
type Factory func(ctx *Context) (Plugin, error)
