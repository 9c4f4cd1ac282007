package session

import "sync/atomic"

// ServerState is the optional, explicitly-configured operational status
// exposed through the status command. Nil (unconfigured) makes status
// commands fail with ErrStatusNotConfigured.
type ServerState int32

const (
	StateUp ServerState = iota
	StateReadOnly
	StateQuiescent
)

func (s ServerState) String() string {
	switch s {
	case StateReadOnly:
		return "readonly"
	case StateQuiescent:
		return "quiescent"
	default:
		return "up"
	}
}

// ServerStatus is shared, process-wide status an operator can toggle via
// the admin API or the status command. A SessionHandler only consults it
// if one was configured at construction.
type ServerStatus struct {
	state atomic.Int32
}

// NewServerStatus creates a ServerStatus starting in StateUp.
func NewServerStatus() *ServerStatus {
	st := &ServerStatus{}
	st.state.Store(int32(StateUp))
	return st
}

func (st *ServerStatus) Get() ServerState {
	return ServerState(st.state.Load())
}

func (st *ServerStatus) Set(s ServerState) {
	st.state.Store(int32(s))
}

func (st *ServerStatus) BlockReads() bool {
	return st.Get() == StateQuiescent
}

func (st *ServerStatus) BlockWrites() bool {
	s := st.Get()
	return s == StateQuiescent || s == StateReadOnly
}

// AvailabilityGate derives global read/write admission once per session at
// connect time, from a policy keyed on the live session count, and
// consults an optional ServerStatus on every operation thereafter.
type AvailabilityGate struct {
	refuseWrites bool
	refuseReads  bool
	status       *ServerStatus // nil if unconfigured
}

// Policy decides (refuseWrites, refuseReads) from the number of currently
// live sessions. Evaluated once, at connect.
type Policy func(sessionsCount int64) (refuseWrites, refuseReads bool)

// AlwaysAvailable is the default policy: never refuse admission based on
// connection count.
func AlwaysAvailable(int64) (bool, bool) { return false, false }

// NewAvailabilityGate evaluates policy against sessionsCount and binds an
// optional ServerStatus (nil disables status-derived gating and makes
// status commands fail with ErrStatusNotConfigured).
func NewAvailabilityGate(sessionsCount int64, policy Policy, status *ServerStatus) *AvailabilityGate {
	if policy == nil {
		policy = AlwaysAvailable
	}
	refuseWrites, refuseReads := policy(sessionsCount)
	return &AvailabilityGate{refuseWrites: refuseWrites, refuseReads: refuseReads, status: status}
}

// CheckRead returns ErrUnavailable-wrapping error if reads are refused,
// either by the connect-time policy or the live ServerStatus.
func (g *AvailabilityGate) CheckRead(op string) error {
	if g.refuseReads {
		return &UnavailableError{Op: op, Scope: "read"}
	}
	if g.status != nil && g.status.BlockReads() {
		return &UnavailableError{Op: op, Scope: "read"}
	}
	return nil
}

// CheckWrite returns an ErrUnavailable-wrapping error if writes are
// refused, either by the connect-time policy or the live ServerStatus.
func (g *AvailabilityGate) CheckWrite(op string) error {
	if g.refuseWrites {
		return &UnavailableError{Op: op, Scope: "write"}
	}
	if g.status != nil && g.status.BlockWrites() {
		return &UnavailableError{Op: op, Scope: "write"}
	}
	return nil
}

// Status returns the current status string, or ("", false) if no
// ServerStatus was configured.
func (g *AvailabilityGate) Status() (string, bool) {
	if g.status == nil {
		return "", false
	}
	return g.status.Get().String(), true
}

// SetStatus updates the shared ServerStatus, or returns
// ErrStatusNotConfigured if none was configured.
func (g *AvailabilityGate) SetStatus(s ServerState) error {
	if g.status == nil {
		return ErrStatusNotConfigured
	}
	g.status.Set(s)
	return nil
}
