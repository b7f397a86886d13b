// Package errors provides standardized error handling patterns for canlink
// components. It includes lifecycle-stage classification, standard error
// variables, and helper functions for consistent error wrapping across the
// subsystem.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Class identifies the lifecycle stage that produced an error.
type Class int

const (
	// ClassCreation represents failures constructing a collaborator
	// (transport handle, protocol table, vehicle controller).
	ClassCreation Class = iota
	// ClassInit represents failures during ordered initialization.
	ClassInit
	// ClassStart represents failures during ordered startup.
	ClassStart
	// ClassUpdate represents steady-state failures applying a command.
	// These are logged and dropped, never escalated.
	ClassUpdate
	// ClassStop represents failures during shutdown. Stop is best-effort,
	// so these only ever appear in logs.
	ClassStop
)

// String returns the string representation of Class
func (c Class) String() string {
	switch c {
	case ClassCreation:
		return "creation"
	case ClassInit:
		return "init"
	case ClassStart:
		return "start"
	case ClassUpdate:
		return "update"
	case ClassStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Orchestrator setup errors, one per initialization stage.
	ErrTransportCreation     = stderrors.New("transport creation failed")
	ErrProtocolTableCreation = stderrors.New("protocol table creation failed")
	ErrReceiverInit          = stderrors.New("receiver initialization failed")
	ErrSenderInit            = stderrors.New("sender initialization failed")
	ErrControllerCreation    = stderrors.New("controller creation failed")
	ErrControllerInit        = stderrors.New("controller initialization failed")
	ErrTelemetryInit         = stderrors.New("telemetry channel initialization failed")

	// Startup errors, one per component in dependency order.
	ErrTransportStart  = stderrors.New("transport start failed")
	ErrReceiverStart   = stderrors.New("receiver start failed")
	ErrSenderStart     = stderrors.New("sender start failed")
	ErrControllerStart = stderrors.New("controller start failed")

	// Steady-state errors.
	ErrCommandRejected = stderrors.New("command rejected")

	// Component lifecycle errors.
	ErrNotInitialized = stderrors.New("component not initialized")
	ErrAlreadyStarted = stderrors.New("component already started")
	ErrNotStarted     = stderrors.New("component not started")
	ErrClosed         = stderrors.New("component closed")

	// Configuration errors.
	ErrInvalidConfig = stderrors.New("invalid configuration")
	ErrMissingConfig = stderrors.New("missing required configuration")
)

// LifecycleError wraps an error with the lifecycle stage that produced it.
type LifecycleError struct {
	Class     Class
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (le *LifecycleError) Error() string {
	if le.Message != "" {
		return le.Message
	}
	return le.Err.Error()
}

// Unwrap returns the underlying error
func (le *LifecycleError) Unwrap() error {
	return le.Err
}

// IsCreation reports whether an error came from collaborator construction.
func IsCreation(err error) bool {
	if err == nil {
		return false
	}

	var le *LifecycleError
	if stderrors.As(err, &le) {
		return le.Class == ClassCreation
	}

	return stderrors.Is(err, ErrTransportCreation) ||
		stderrors.Is(err, ErrProtocolTableCreation) ||
		stderrors.Is(err, ErrControllerCreation)
}

// IsInit reports whether an error came from ordered initialization.
func IsInit(err error) bool {
	if err == nil {
		return false
	}

	var le *LifecycleError
	if stderrors.As(err, &le) {
		return le.Class == ClassInit
	}

	return stderrors.Is(err, ErrReceiverInit) ||
		stderrors.Is(err, ErrSenderInit) ||
		stderrors.Is(err, ErrControllerInit) ||
		stderrors.Is(err, ErrTelemetryInit) ||
		stderrors.Is(err, ErrNotInitialized)
}

// IsStart reports whether an error came from ordered startup.
func IsStart(err error) bool {
	if err == nil {
		return false
	}

	var le *LifecycleError
	if stderrors.As(err, &le) {
		return le.Class == ClassStart
	}

	return stderrors.Is(err, ErrTransportStart) ||
		stderrors.Is(err, ErrReceiverStart) ||
		stderrors.Is(err, ErrSenderStart) ||
		stderrors.Is(err, ErrControllerStart)
}

// IsUpdate reports whether an error came from a steady-state command update.
func IsUpdate(err error) bool {
	if err == nil {
		return false
	}

	var le *LifecycleError
	if stderrors.As(err, &le) {
		return le.Class == ClassUpdate
	}

	return stderrors.Is(err, ErrCommandRejected)
}

// Classify returns the lifecycle class for an error. Unclassified errors
// default to ClassUpdate: steady-state faults are logged and dropped, never
// escalated, which is the safe interpretation for an unknown error.
func Classify(err error) Class {
	if err == nil {
		return ClassUpdate
	}

	var le *LifecycleError
	if stderrors.As(err, &le) {
		return le.Class
	}

	if IsCreation(err) {
		return ClassCreation
	}
	if IsInit(err) {
		return ClassInit
	}
	if IsStart(err) {
		return ClassStart
	}

	return ClassUpdate
}

// newClassified creates a new lifecycle error
// This is an internal helper - use the Wrap* variants instead.
func newClassified(class Class, err error, component, operation, message string) *LifecycleError {
	return &LifecycleError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapCreation wraps an error as a creation failure with context
func WrapCreation(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ClassCreation, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInit wraps an error as an initialization failure with context
func WrapInit(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ClassInit, wrappedErr, component, method, wrappedErr.Error())
}

// WrapStart wraps an error as a startup failure with context
func WrapStart(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ClassStart, wrappedErr, component, method, wrappedErr.Error())
}

// WrapUpdate wraps an error as a steady-state update failure with context
func WrapUpdate(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ClassUpdate, wrappedErr, component, method, wrappedErr.Error())
}

// WrapStop wraps an error as a shutdown failure with context
func WrapStop(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ClassStop, wrappedErr, component, method, wrappedErr.Error())
}
