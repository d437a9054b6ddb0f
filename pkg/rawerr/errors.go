// Package rawerr classifies the results of native decoding calls.
//
// Every status code returned across the native boundary falls into exactly
// one of three kinds:
//
//	0      success, no error
//	< 0    KindLibrary, message from the library's own string table
//	> 0    KindSystemCall, message from the OS for that errno
//
// Errors detected by the wrapper itself (an unencodable path, an unknown
// image kind, a consumed session) are KindWrapper.
//
// Errors carry a call-site trail built by At:
//
//	err = rawerr.At(err, "unpack()")
//	// "Libraw fn call resulted in error: ... at unpack() at decode(a.cr2)"
package rawerr

import (
	"errors"
	"fmt"

	"github.com/user/rawkit/pkg/ports"
)

// Kind identifies which side of the native boundary produced an error.
type Kind int

const (
	// KindSystemCall is an OS error reported through a positive status.
	KindSystemCall Kind = iota + 1
	// KindLibrary is a native library error reported through a negative status.
	KindLibrary
	// KindWrapper is an error raised by the Go wrapper before or after the native call.
	KindWrapper
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindSystemCall:
		return "SystemCallError"
	case KindLibrary:
		return "LibraryError"
	case KindWrapper:
		return "WrapperError"
	default:
		return "UnknownError"
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrSystemCall = errors.New("rawerr: system call error")
	ErrLibrary    = errors.New("rawerr: library error")
	ErrWrapper    = errors.New("rawerr: wrapper error")
)

// StrErrorer resolves the native library's message for a negative status.
type StrErrorer interface {
	StrError(code int) string
}

// Error is a classified native-boundary error.
type Error struct {
	Kind Kind

	// Code is the status code for KindSystemCall and KindLibrary errors.
	Code int

	// Message is the human-readable message including the call-site trail.
	Message string
}

// Error formats the error with a kind-specific prefix.
func (e *Error) Error() string {
	switch e.Kind {
	case KindSystemCall:
		return fmt.Sprintf("SysCall made by LibRaw resulted in error: %s", e.Message)
	case KindLibrary:
		return fmt.Sprintf("Libraw fn call resulted in error: %s", e.Message)
	default:
		return fmt.Sprintf("Failed with error: %s", e.Message)
	}
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrSystemCall:
		return e.Kind == KindSystemCall
	case ErrLibrary:
		return e.Kind == KindLibrary
	case ErrWrapper:
		return e.Kind == KindWrapper
	}
	return false
}

// Unwrap exposes the platform errno of a system call error.
func (e *Error) Unwrap() error {
	if e.Kind == KindSystemCall {
		return errnoError(e.Code)
	}
	return nil
}

// At returns a copy of e with " at <site>" appended to its message.
func (e *Error) At(site string) *Error {
	return &Error{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message + " at " + site,
	}
}

// Fatal reports whether a library error carries one of the fatal codes.
func (e *Error) Fatal() bool {
	return e.Kind == KindLibrary && ports.IsFatalStatus(e.Code)
}

// FromStatus classifies a native status code. It returns nil for success.
func FromStatus(code int, tab StrErrorer) error {
	if code == ports.StatusSuccess {
		return nil
	}
	if code < 0 {
		msg := ""
		if tab != nil {
			msg = tab.StrError(code)
		}
		if msg == "" {
			msg = fmt.Sprintf("libraw error %d", code)
		}
		return &Error{Kind: KindLibrary, Code: code, Message: msg}
	}
	msg := errnoMessage(code)
	if msg == "" {
		msg = fmt.Sprintf("errno %d", code)
	}
	return &Error{Kind: KindSystemCall, Code: code, Message: msg}
}

// Wrapper builds a KindWrapper error from a formatted message.
func Wrapper(format string, args ...interface{}) *Error {
	return &Error{Kind: KindWrapper, Message: fmt.Sprintf(format, args...)}
}

// At appends a call site to err. Classified errors keep their kind; any
// other error is wrapped. At(nil, site) is nil.
func At(err error, site string) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) && re == err {
		return re.At(site)
	}
	return fmt.Errorf("%w at %s", err, site)
}

// KindOf returns the kind of a classified error, or 0 if err is not one.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

// IsFatal reports whether err is a fatal library error.
func IsFatal(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Fatal()
}
