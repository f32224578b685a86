/*
SPDX-License-Identifier: Apache-2.0
*/

package escrow

import (
	"errors"
	"fmt"
)

// ExitCode is the numeric outcome of one invocation, 0 means accepted
type ExitCode uint32

const (
	ExitOK ExitCode = 0

	// Auction codes
	ExitUnauthorized ExitCode = 403
	ExitBidRejected  ExitCode = 1000
	ExitWrongTime    ExitCode = 1005

	// Raffle codes
	ExitWrongState        ExitCode = 1001
	ExitWrongAddress      ExitCode = 1002
	ExitInsufficientCoins ExitCode = 1003

	ExitUnknownOp ExitCode = 0xffff
)

// Kind classifies a rejection independently of the engine's numeric code
type Kind string

const (
	KindUnauthorizedSender Kind = "UNAUTHORIZED_SENDER"
	KindWrongPhase         Kind = "WRONG_PHASE"
	KindBelowMinimum       Kind = "BELOW_MINIMUM"
	KindAboveMaximum       Kind = "ABOVE_MAXIMUM"
	KindInsufficientValue  Kind = "INSUFFICIENT_VALUE"
	KindUnknownEntity      Kind = "UNKNOWN_ENTITY"
	KindAlreadyProcessed   Kind = "ALREADY_PROCESSED"
	KindUnknownOperation   Kind = "UNKNOWN_OPERATION"
)

// Sentinels for errors.Is, they match any code of the same kind
var (
	ErrUnauthorized      = &Error{Kind: KindUnauthorizedSender}
	ErrWrongPhase        = &Error{Kind: KindWrongPhase}
	ErrBelowMinimum      = &Error{Kind: KindBelowMinimum}
	ErrAboveMaximum      = &Error{Kind: KindAboveMaximum}
	ErrInsufficientValue = &Error{Kind: KindInsufficientValue}
	ErrUnknownEntity     = &Error{Kind: KindUnknownEntity}
	ErrAlreadyProcessed  = &Error{Kind: KindAlreadyProcessed}
	ErrUnknownOperation  = &Error{Kind: KindUnknownOperation}
)

// Error is a rejected message. State and actions are left untouched.
type Error struct {
	Kind Kind
	Code ExitCode
	Msg  string
}

// Errorf builds a rejection
func Errorf(kind Kind, code ExitCode, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s (exit code %d)", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s: %s (exit code %d)", e.Kind, e.Msg, e.Code)
}

// Is matches on kind, and on code as well when the target carries one
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == 0 || t.Code == e.Code)
}

// ExitCodeOf extracts the exit code of an engine outcome
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ExitUnknownOp
}

// KindOf extracts the rejection kind, empty when err is not an engine error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
