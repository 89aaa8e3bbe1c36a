package cec

// Status is the device reachability as decided by the connection check loop.
type Status int

const (
	// StatusUnknown is the initial value before the first connection
	// attempt completes.
	StatusUnknown Status = iota
	StatusOnline
	StatusOffline
)

func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// StatusListener observes reachability transitions. The reason is empty
// while online.
type StatusListener func(status Status, reason string)
