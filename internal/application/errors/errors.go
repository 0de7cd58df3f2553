// Package apperrors defines application-level error types.
package apperrors

import (
	"errors"
	"fmt"
)

// ConstructionError indicates a member could not be turned into a usable
// profile. It is always isolated to that member.
type ConstructionError struct {
	Cause   error
	Member  string // Qualified member name
	Stage   string // accessor, processor, validator or marker
	Message string
}

func (e *ConstructionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot build %s for %s: %s: %v", e.Stage, e.Member, e.Message, e.Cause)
	}
	return fmt.Sprintf("cannot build %s for %s: %s", e.Stage, e.Member, e.Message)
}

func (e *ConstructionError) Unwrap() error {
	return e.Cause
}

// NewConstructionError creates a new construction error.
func NewConstructionError(member, stage, message string, cause error) *ConstructionError {
	return &ConstructionError{
		Member:  member,
		Stage:   stage,
		Message: message,
		Cause:   cause,
	}
}

// GenerationError indicates a closure could not be emitted for a member even
// after type substitution.
type GenerationError struct {
	Cause  error
	Member string
	Type   string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("cannot generate closure for %s (type %s): %v", e.Member, e.Type, e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// NewGenerationError creates a new generation error.
func NewGenerationError(member, typ string, cause error) *GenerationError {
	return &GenerationError{
		Member: member,
		Type:   typ,
		Cause:  cause,
	}
}

// LifecycleError describes a registration call that had no effect. It is
// logged, never returned to callers.
type LifecycleError struct {
	Op     string
	Target string
	Reason string
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Target, e.Reason)
}

// NewLifecycleError creates a new lifecycle error.
func NewLifecycleError(op, target, reason string) *LifecycleError {
	return &LifecycleError{
		Op:     op,
		Target: target,
		Reason: reason,
	}
}

// SystemicError indicates the profiling pass itself failed and no profile can
// be trusted.
type SystemicError struct {
	Cause error
	Op    string
}

func (e *SystemicError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Cause)
}

func (e *SystemicError) Unwrap() error {
	return e.Cause
}

// NewSystemicError creates a new systemic error.
func NewSystemicError(op string, cause error) *SystemicError {
	return &SystemicError{
		Op:    op,
		Cause: cause,
	}
}

// IsSystemic reports whether err carries a SystemicError.
func IsSystemic(err error) bool {
	var se *SystemicError
	return errors.As(err, &se)
}

// ConfigurationError indicates system config or setup issue.
type ConfigurationError struct {
	Cause   error
	Aspect  string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error (%s): %s: %v", e.Aspect, e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Aspect, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(aspect, message string, cause error) *ConfigurationError {
	return &ConfigurationError{
		Aspect:  aspect,
		Message: message,
		Cause:   cause,
	}
}
