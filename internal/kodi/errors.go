package kodi

import "errors"

var (
	// ErrNoAddress is returned by Connect when no host has been configured.
	// No network I/O is attempted in that case.
	ErrNoAddress = errors.New("no network address specified")

	// ErrNotConnected is returned when a call is issued without an open connection.
	ErrNotConnected = errors.New("not connected to kodi")

	// ErrTimeout is returned when no response arrives within the call deadline.
	ErrTimeout = errors.New("timed out waiting for response")

	// ErrClosed is returned to in-flight calls when the client is closed.
	ErrClosed = errors.New("client closed")
)
