// Package errors holds the deployment error taxonomy and the error stack that
// collects definition errors raised by extensions.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ── Codes ─────────────────────────────────────────────────────────────────────

// Error code constants for structured errors.
const (
	CodeDeployment           = "DEPLOYMENT_ERROR"
	CodeDefinition           = "DEFINITION_ERROR"
	CodeIllegalState         = "ILLEGAL_STATE"
	CodeMultipleScopes       = "MULTIPLE_SCOPES"
	CodeUnproxiable          = "UNPROXIABLE"
	CodeAmbiguousConstructor = "AMBIGUOUS_CONSTRUCTOR"
	CodePassivation          = "PASSIVATION"
	CodeProducerNotSet       = "PRODUCER_NOT_SET"
	CodeUnsatisfied          = "UNSATISFIED"
	CodeAmbiguous            = "AMBIGUOUS"
	CodeDecorator            = "DECORATOR"
	CodeInterceptor          = "INTERCEPTOR"
	CodeInactiveEvent        = "INACTIVE_EVENT"
	CodeContextNotActive     = "CONTEXT_NOT_ACTIVE"
	CodeDuplicateBean        = "DUPLICATE_BEAN"
)

// Sentinels for errors.Is. They match any DeploymentError carrying the same code.
var (
	ErrDeployment           = &DeploymentError{Code: CodeDeployment}
	ErrMultipleScopes       = &DeploymentError{Code: CodeMultipleScopes}
	ErrUnproxiable          = &DeploymentError{Code: CodeUnproxiable}
	ErrAmbiguousConstructor = &DeploymentError{Code: CodeAmbiguousConstructor}
	ErrPassivation          = &DeploymentError{Code: CodePassivation}
	ErrProducerNotSet       = &DeploymentError{Code: CodeProducerNotSet}
	ErrUnsatisfied          = &DeploymentError{Code: CodeUnsatisfied}
	ErrAmbiguous            = &DeploymentError{Code: CodeAmbiguous}
	ErrDecorator            = &DeploymentError{Code: CodeDecorator}
	ErrInterceptor          = &DeploymentError{Code: CodeInterceptor}
	ErrContextNotActive     = &DeploymentError{Code: CodeContextNotActive}
	ErrDuplicateBean        = &DeploymentError{Code: CodeDuplicateBean}
)

// ── DeploymentError ───────────────────────────────────────────────────────────

// DeploymentError is a structural failure detected while defining a bean, or
// the aggregate raised when the error stack is inspected and found non-empty.
type DeploymentError struct {
	Code    string
	Type    string // offending type, if any
	Message string
	Causes  []error
}

func (e *DeploymentError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Type != "" {
		sb.WriteString(" [")
		sb.WriteString(e.Type)
		sb.WriteString("]")
	}
	for i, cause := range e.Causes {
		fmt.Fprintf(&sb, "\n  %d) %v", i+1, cause)
	}
	return sb.String()
}

// Unwrap exposes the aggregated causes to errors.Is and errors.As.
func (e *DeploymentError) Unwrap() []error { return e.Causes }

// Is matches by code so callers can compare against the package sentinels.
// ErrDeployment matches every DeploymentError.
func (e *DeploymentError) Is(target error) bool {
	t, ok := target.(*DeploymentError)
	if !ok {
		return false
	}
	if t.Code == CodeDeployment {
		return true
	}
	return e.Code != "" && e.Code == t.Code
}

// Deployment creates a structural DeploymentError for the given type.
func Deployment(code, typ, format string, args ...any) *DeploymentError {
	return &DeploymentError{Code: code, Type: typ, Message: fmt.Sprintf(format, args...)}
}

// Aggregate builds one DeploymentError summarising every cause.
func Aggregate(message string, causes []error) *DeploymentError {
	cp := make([]error, len(causes))
	copy(cp, causes)
	return &DeploymentError{Code: CodeDeployment, Message: message, Causes: cp}
}

// IsAggregate reports whether err is a deployment-wide aggregate failure
// rather than a single structural error.
func IsAggregate(err error) bool {
	var de *DeploymentError
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == CodeDeployment && len(de.Causes) > 0
}

// ── DefinitionError ───────────────────────────────────────────────────────────

// DefinitionError wraps a failure an extension reported during a lifecycle phase.
type DefinitionError struct {
	Phase string
	Err   error
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("definition error during %s: %v", e.Phase, e.Err)
}

func (e *DefinitionError) Unwrap() error { return e.Err }

// ── IllegalStateError ─────────────────────────────────────────────────────────

// IllegalStateError signals that a caller broke an API contract. It is a
// programming error, never a recoverable deployment condition.
type IllegalStateError struct {
	Code    string
	Message string
}

func (e *IllegalStateError) Error() string { return "illegal state: " + e.Message }

func (e *IllegalStateError) Is(target error) bool {
	t, ok := target.(*IllegalStateError)
	if !ok {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// ErrIllegalState matches every IllegalStateError.
var ErrIllegalState = &IllegalStateError{}

// ErrInactiveEvent matches mutations attempted on an event after its phase.
var ErrInactiveEvent = &IllegalStateError{Code: CodeInactiveEvent}

// IllegalState creates an IllegalStateError.
func IllegalState(format string, args ...any) *IllegalStateError {
	return &IllegalStateError{Code: CodeIllegalState, Message: fmt.Sprintf(format, args...)}
}

// InactiveEvent creates the error raised when an inert event is mutated.
func InactiveEvent(event, operation string) *IllegalStateError {
	return &IllegalStateError{
		Code:    CodeInactiveEvent,
		Message: fmt.Sprintf("%s called on %s after its phase completed", operation, event),
	}
}

// ── stdlib re-exports ─────────────────────────────────────────────────────────

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }

func Join(errs ...error) error { return errors.Join(errs...) }
