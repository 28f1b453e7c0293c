package models

import "time"

// StatusKind is the lifecycle stage of a server's last known status.
type StatusKind string

const (
	StatusUnloaded StatusKind = "unloaded" // never probed in this session
	StatusLoading  StatusKind = "loading"  // probe in flight
	StatusLoaded   StatusKind = "loaded"   // last probe succeeded
	StatusFailed   StatusKind = "failed"   // last probe failed
)

// Status holds the outcome of the latest probe for an entry.
type Status struct {
	Kind      StatusKind `json:"kind"`
	PingMs    int64      `json:"ping_ms,omitempty"`
	Online    int        `json:"online,omitempty"`
	Max       int        `json:"max,omitempty"`
	MOTD      string     `json:"motd,omitempty"`
	Version   string     `json:"version,omitempty"`
	Protocol  int        `json:"protocol,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CanTransition reports whether moving from s to the given kind is allowed.
// Any status may go back to loading when a fresh probe starts, and only a
// probe in flight may settle into loaded or failed.
func (s Status) CanTransition(to StatusKind) bool {
	switch to {
	case StatusLoading:
		return true
	case StatusLoaded, StatusFailed:
		return s.Kind == StatusLoading
	case StatusUnloaded:
		return true
	default:
		return false
	}
}

// Loading returns the status of a probe that just started.
func Loading(at time.Time) Status {
	return Status{Kind: StatusLoading, UpdatedAt: at}
}

// Failed returns a failed status carrying a human readable reason.
func Failed(reason string, at time.Time) Status {
	return Status{Kind: StatusFailed, Reason: reason, UpdatedAt: at}
}

// Settled reports whether the status is a probe outcome.
func (s Status) Settled() bool {
	return s.Kind == StatusLoaded || s.Kind == StatusFailed
}
