package cec

import (
	"kodicec/internal/kodi"
	"kodicec/pkg/plugin"
)

func init() {
	plugin.Register(plugin.Info{
		Name:        "cec",
		Description: "Relays CEC commands to Kodi's JSON-CEC addon and monitors reachability",
		Priority:    plugin.PriorityDefault,
		Factory:     New,
	})
}

// New is the plugin factory: it builds a Kodi client from the configured
// connection target and wraps it in a Handler.
func New(ctx *plugin.Context) (plugin.Plugin, error) {
	client := kodi.NewClient(ctx.Config.IPAddress, ctx.Config.Port, ctx.Logger.Named("kodi"))
	return NewHandler(client, ctx.Config.Refresh(), ctx.Logger), nil
}

// ReportStatus implements plugin.StatusReporter.
func (h *Handler) ReportStatus() plugin.StatusReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	return plugin.StatusReport{
		Status:  h.status.String(),
		Reason:  h.reason,
		Version: h.version,
	}
}
