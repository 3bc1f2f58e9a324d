// Package kkerr defines the error taxonomy surfaced to callers of the
// device core. Every error returned across a Command boundary is a *Error
// with one of the Kinds below, so callers can switch on kind rather than
// parse text.
package kkerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error the core can return to a caller.
type Kind int

const (
	// NotConnected means the descriptor's device is no longer present.
	NotConnected Kind = iota
	// AccessDenied means the transport could not claim the device, usually
	// because another process already holds it.
	AccessDenied
	// Timeout means a Command's deadline elapsed before it completed.
	Timeout
	// ProtocolError means a frame or message failed to decode, or the
	// device sent a message the codec does not expect at that point.
	ProtocolError
	// DeviceFailure wraps a Failure message the device itself returned.
	DeviceFailure
	// Cancelled means a parked interactive prompt was cancelled by the UI
	// or the device disconnected mid-session.
	Cancelled
	// Unsupported means the operation is not valid for this device/mode.
	Unsupported
	// InvalidInput means the caller supplied malformed Command arguments.
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case NotConnected:
		return "not_connected"
	case AccessDenied:
		return "access_denied"
	case Timeout:
		return "timeout"
	case ProtocolError:
		return "protocol_error"
	case DeviceFailure:
		return "device_failure"
	case Cancelled:
		return "cancelled"
	case Unsupported:
		return "unsupported"
	case InvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by this module. AccessDenied and
// NotConnected carry human-actionable remediation text in Detail; the rest
// carry a diagnostic only.
type Error struct {
	Kind    Kind
	Detail  string
	Code    string // device-reported failure code, DeviceFailure only
	Wrapped error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code=%s)", e.Kind, e.Detail, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is lets errors.Is(err, kkerr.Timeout) style checks work via a sentinel
// comparison on Kind rather than identity.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func Wrap(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Wrapped: err}
}

func DeviceFail(code, message string) *Error {
	return &Error{Kind: DeviceFailure, Detail: message, Code: code}
}

// KindOf reports the Kind of err if it is (or wraps) an *Error, else false.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// accessDeniedRemediation is the default remediation list from the spec; it
// is used when no concrete conflicting process can be named.
const accessDeniedRemediation = `device is already claimed by another process

Common causes:
  - a companion desktop app or bridge daemon is connected to the device
  - another wallet application has it open
  - a previous connection was not closed cleanly

Solutions:
  1. close other wallet applications and bridge daemons
  2. unplug and reconnect the device
  3. try another USB port or cable`

// AccessDeniedError builds the AccessDenied error. If conflictProcess is
// non-empty it is named as the likely cause instead of the generic list.
func AccessDeniedError(conflictProcess string) *Error {
	if conflictProcess == "" {
		return New(AccessDenied, accessDeniedRemediation)
	}
	return New(AccessDenied, fmt.Sprintf(
		"device is already claimed by another process\n\n"+
			"Likely cause: %q appears to be running and holding the device.\n\n"+
			"Solutions:\n"+
			"  1. close %q\n"+
			"  2. unplug and reconnect the device\n"+
			"  3. try another USB port or cable", conflictProcess, conflictProcess))
}

const notConnectedRemediation = `device not found

Solutions:
  1. check the USB cable and port
  2. unplug and reconnect the device
  3. confirm the device is powered on`

func NotConnectedError() *Error {
	return New(NotConnected, notConnectedRemediation)
}

// hidUnresponsiveRemediation is returned when a HID read times out with zero
// bytes.
const hidUnresponsiveRemediation = `device unresponsive

The device accepted the request but did not reply within the timeout.

Solutions:
  1. replug the device
  2. close other clients that may be talking to it
  3. check the cable and port`

func HIDUnresponsiveError() *Error {
	return New(Timeout, hidUnresponsiveRemediation)
}
