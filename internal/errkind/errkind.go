// Package errkind classifies orchestrator-facing errors by how the cycle
// engine should react, in the same sentinel-error spirit as the circuit
// breaker's ErrCircuitOpen/ErrRequestTimeout: a caller switches on kind
// rather than matching error strings.
package errkind

import "errors"

// Kind distinguishes an error that must abort the current user's cycle from
// one that should be recorded and skipped over.
type Kind int

const (
	// Transient covers a single feed/storage call failing; the step that
	// raised it is skipped, the cycle continues (§6: "no data this cycle").
	Transient Kind = iota
	// Logic covers a programming or state invariant violation; the cycle
	// for this user aborts rather than risk acting on bad state.
	Logic
)

func (k Kind) String() string {
	if k == Logic {
		return "logic"
	}
	return "transient"
}

// Error wraps an underlying error with its Kind and the phase that produced
// it, so CycleResult can report "which step, how severe" without parsing
// messages.
type Error struct {
	Kind  Kind
	Phase string
	Err   error
}

func (e *Error) Error() string {
	return e.Phase + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// TransientErr builds a Transient-kind error for phase.
func TransientErr(phase string, err error) *Error {
	return &Error{Kind: Transient, Phase: phase, Err: err}
}

// LogicErr builds a Logic-kind error for phase.
func LogicErr(phase string, err error) *Error {
	return &Error{Kind: Logic, Phase: phase, Err: err}
}

// IsLogic reports whether err (or anything it wraps) is a Logic-kind error.
func IsLogic(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == Logic
	}
	return false
}
