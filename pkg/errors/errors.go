package errors

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// New returns an error with message and stack.
func New(message string) error {
	return errors.New(message)
}

// NewWithReport returns an error with message and stack, and reports it.
func NewWithReport(message string) error {
	err := errors.New(message)
	report(err)
	return err
}

// Errorf formats an error with stack.
func Errorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

// ErrorfAndReport formats an error with stack, and reports it.
func ErrorfAndReport(format string, args ...interface{}) error {
	err := errors.Errorf(format, args...)
	report(err)
	return err
}

// Wrap annotates err with message. Nil in, nil out.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message. Nil in, nil out.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// WrapAndReport annotates err with message and reports it. Nil in, nil out.
func WrapAndReport(err error, message string) error {
	if err == nil {
		return nil
	}
	wrapped := errors.Wrap(err, message)
	report(wrapped)
	return wrapped
}

// WithStack attaches the current stack to err. Nil in, nil out.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// WithStackAndReport attaches the current stack to err and reports it.
func WithStackAndReport(err error) error {
	if err == nil {
		return nil
	}
	withStack := errors.WithStack(err)
	report(withStack)
	return withStack
}

// Report sends err to every registered reporter without changing it.
func Report(err error) {
	report(err)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func Cause(err error) error {
	return errors.Cause(err)
}

type stack []uintptr

// callers skips runtime.Callers, callers and the reporter method itself.
func callers() stack {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[0:n]
}

func (s stack) fullStack() []string {
	frames := runtime.CallersFrames(s)
	var lines []string
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			lines = append(lines, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	// stack keys are indexed by callers, keep at least three entries
	for len(lines) < 3 {
		lines = append(lines, "unknown")
	}
	return lines
}
