// Package tiaerr defines the typed failure domain shared across the
// TIAZIP pipeline. Every stage raises one of these kinds rather than a
// bare error, so a caller can errors.As down to the specific kind while
// %w-wrapping still works for ad hoc context.
package tiaerr

import "fmt"

// Kind names one of the fatal failure categories a pipeline run can
// produce. There is no recoverable-error concept here: any of these
// aborts the export for the affected (subsong, channel).
type Kind string

const (
	KindConfigInvalid       Kind = "config_invalid"
	KindCapacityExceeded    Kind = "capacity_exceeded"
	KindInvalidDuration     Kind = "invalid_duration"
	KindAlphabetOverflow    Kind = "alphabet_overflow"
	KindValidationMismatch  Kind = "validation_mismatch"
	KindInternalAssertion   Kind = "internal_assertion"
)

// Error is the common interface every typed failure implements.
type Error interface {
	error
	Kind() Kind
}

type baseError struct {
	kind Kind
	msg  string
	err  error
}

func (e *baseError) Kind() Kind { return e.kind }

func (e *baseError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *baseError) Unwrap() error { return e.err }

// ConfigInvalid reports an unrecognized or malformed configuration option.
func ConfigInvalid(msg string) Error {
	return &baseError{kind: KindConfigInvalid, msg: msg}
}

// ConfigInvalidf is ConfigInvalid with fmt.Sprintf-style formatting.
func ConfigInvalidf(format string, args ...any) Error {
	return &baseError{kind: KindConfigInvalid, msg: fmt.Sprintf(format, args...)}
}

// CapacityExceeded reports a variant-specific limit violation (e.g. BASIC's
// 256-data-point cap, or TIAZIP's block-size cap).
type CapacityExceededErr struct {
	*baseError
	Limit, Got int
}

func CapacityExceeded(what string, limit, got int) *CapacityExceededErr {
	return &CapacityExceededErr{
		baseError: &baseError{
			kind: KindCapacityExceeded,
			msg:  fmt.Sprintf("%s: limit %d, got %d", what, limit, got),
		},
		Limit: limit,
		Got:   got,
	}
}

// InvalidDuration reports a zero-duration interval. internal/sibling's
// EncodeTIAComp returns it as a fatal error; internal/lowering handles
// the same condition by clamping to 1 with a logged warning and does not
// construct this value.
type InvalidDurationErr struct {
	*baseError
	Position int
}

func InvalidDuration(position int) *InvalidDurationErr {
	return &InvalidDurationErr{
		baseError: &baseError{
			kind: KindInvalidDuration,
			msg:  fmt.Sprintf("zero-duration interval at position %d", position),
		},
		Position: position,
	}
}

// AlphabetOverflow reports that the distinct AlphaCode count exceeds the
// index type's range.
func AlphabetOverflow(count, max int) Error {
	return &baseError{
		kind: KindAlphabetOverflow,
		msg:  fmt.Sprintf("alphabet overflow: %d distinct codes exceeds max %d", count, max),
	}
}

// ValidationMismatch reports the validator's state machine diverging from
// the source lowering at a specific step.
type ValidationMismatchErr struct {
	*baseError
	Subsong, Channel, Step int
	Expected, Actual       uint64
}

func ValidationMismatch(subsong, channel, step int, expected, actual uint64) *ValidationMismatchErr {
	return &ValidationMismatchErr{
		baseError: &baseError{
			kind: KindValidationMismatch,
			msg: fmt.Sprintf(
				"subsong %d channel %d step %d: expected %#016x, got %#016x",
				subsong, channel, step, expected, actual,
			),
		},
		Subsong: subsong, Channel: channel, Step: step,
		Expected: expected, Actual: actual,
	}
}

// InternalAssertion reports a §3-§4 invariant violation. It should never
// fire on correct input; when it does, the encoder itself is buggy.
func InternalAssertion(msg string) Error {
	return &baseError{kind: KindInternalAssertion, msg: msg}
}

func InternalAssertionf(format string, args ...any) Error {
	return &baseError{kind: KindInternalAssertion, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches additional context to an existing typed error while
// preserving its kind for errors.As.
func Wrap(kind Kind, msg string, err error) Error {
	return &baseError{kind: kind, msg: msg, err: err}
}
