package kodi

import (
	"encoding/json"
	"fmt"
)

// Request is a JSON-RPC 2.0 request frame sent to Kodi.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      int    `json:"id"`
}

// Response is a JSON-RPC 2.0 response frame received from Kodi.
// Notifications pushed by Kodi carry no id and are ignored by this client.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int            `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error object carried by a failed JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("kodi rpc error %d: %s", e.Code, e.Message)
}

// Version is Kodi's application version as reported by Application.GetProperties.
type Version struct {
	Major    int    `json:"major"`
	Minor    int    `json:"minor"`
	Revision string `json:"revision"`
}

// String formats the version for display, e.g. "18.2 (abc123)".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d (%s)", v.Major, v.Minor, v.Revision)
}

// applicationProperties mirrors the Application.GetProperties result shape.
type applicationProperties struct {
	Version *Version `json:"version"`
}

type getPropertiesParams struct {
	Properties []string `json:"properties"`
}

type executeAddonParams struct {
	AddonID string      `json:"addonid"`
	Params  addonParams `json:"params"`
}

type addonParams struct {
	Command string `json:"command"`
}
