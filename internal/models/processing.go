package models

// SessionState is the coarse state of a filter session.
type SessionState int

const (
	StateEmpty SessionState = iota
	StateLoaded
)

func (s SessionState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// ActiveParametric is the parametric filter whose control value can still be
// adjusted.
type ActiveParametric struct {
	Filter string
	Value  float64
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	State            SessionState
	Original         RasterImage
	Current          RasterImage
	Cumulative       bool
	ActiveParametric *ActiveParametric
}
