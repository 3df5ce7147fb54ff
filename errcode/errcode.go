package errcode

import "errors"

// Code is a stable, log- and bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Unsupported   Code = "unsupported"
	InvalidParams Code = "invalid_params"
	Timeout       Code = "timeout"

	// HardwareFault covers camera, sensor, display and inference faults.
	// The kiosk treats it as fatal.
	HardwareFault Code = "hardware_fault"
	// RemoteWrite covers recorder failures. Logged, never retried.
	RemoteWrite Code = "remote_write"

	Error Code = "error" // generic fallback
)

// E is the optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Hardware wraps err as a HardwareFault raised by op. A nil err stays nil.
func Hardware(op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: HardwareFault, Op: op, Err: err}
}

// Remote wraps err as a RemoteWrite failure raised by op. A nil err stays nil.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: RemoteWrite, Op: op, Err: err}
}

// Of extracts a Code from an error chain, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}

// Is reports whether err carries code c anywhere in its chain.
func Is(err error, c Code) bool { return err != nil && Of(err) == c }
