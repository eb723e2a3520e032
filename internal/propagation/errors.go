package propagation

import (
	"errors"
	"fmt"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/tle"
)

var (
	// ErrInvalidElements is the parser's sentinel, re-exported so callers
	// of New need not import tle to classify failures.
	ErrInvalidElements = tle.ErrInvalidElements
	// ErrDivergence is matched when a state cannot be produced for an offset.
	ErrDivergence = errors.New("propagation diverged")
)

// Kind classifies a propagation failure.
type Kind int

const (
	KindInvalidElements Kind = iota + 1
	KindDivergence
)

func (k Kind) String() string {
	switch k {
	case KindInvalidElements:
		return "invalid_elements"
	case KindDivergence:
		return "divergence"
	}
	return "unknown"
}

// Error reports a failed construction or propagation.
type Error struct {
	Kind    Kind
	Minutes float64
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s at %+.4f min: %s", e.Kind, e.Minutes, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	switch e.Kind {
	case KindInvalidElements:
		errs = append(errs, ErrInvalidElements)
	case KindDivergence:
		errs = append(errs, ErrDivergence)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func diverged(minutes float64, format string, args ...any) *Error {
	return &Error{Kind: KindDivergence, Minutes: minutes, Reason: fmt.Sprintf(format, args...)}
}
