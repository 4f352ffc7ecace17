// Package beaconerr provides the classified error type shared across every
// component of the verification harness, from spec compilation through
// replay.
package beaconerr

import (
	"errors"
	"fmt"
)

// Class represents the classification of an error for the tool surface and
// for retry/recovery logic in the campaign coordinator.
type Class string

const (
	// ClassCompilation indicates the specification failed to compile:
	// schema validation, type checking, or graph lowering rejected it.
	ClassCompilation Class = "compilation"

	// ClassInterfaceMismatch indicates a binding descriptor does not match
	// the guest module's declared action surface.
	ClassInterfaceMismatch Class = "interface_mismatch"

	// ClassInvariantViolation indicates a model invariant failed to hold
	// after an effect was applied.
	ClassInvariantViolation Class = "invariant_violation"

	// ClassTemporalViolation indicates a before/after/never rule was
	// violated by the observed action sequence.
	ClassTemporalViolation Class = "temporal_violation"

	// ClassDiscrepancy indicates the model and the guest disagreed on the
	// outcome of an action.
	ClassDiscrepancy Class = "discrepancy"

	// ClassGuestCrash indicates the guest module trapped.
	ClassGuestCrash Class = "guest_crash"

	// ClassGuestTimeout indicates the guest module exhausted its fuel
	// budget without returning.
	ClassGuestTimeout Class = "guest_timeout"

	// ClassGuardFailure indicates a guard expression could not be
	// evaluated (missing binding, type mismatch at runtime).
	ClassGuardFailure Class = "guard_failure"

	// ClassResourceExhaustion indicates a configured resource budget
	// (memory, iteration count, solver time) was exceeded.
	ClassResourceExhaustion Class = "resource_exhaustion"

	// ClassNotFound indicates a referenced campaign, trace, or capsule
	// does not exist.
	ClassNotFound Class = "not_found"

	// ClassInternal indicates a defect in the harness itself, not in the
	// specification or the guest under test.
	ClassInternal Class = "internal"
)

// Error is the classified error type returned by every fallible operation
// in this module.
type Error struct {
	// Class is the error classification for the tool surface and for
	// coordinator retry logic.
	Class Class `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is a short machine-readable code, distinct from Class, that a
	// caller driving the tool surface can switch on (§7 addition:
	// tool-surface responses are classified the same way compile errors
	// are).
	Code string `json:"code,omitempty"`

	// CampaignID is the campaign the error occurred within, if applicable.
	CampaignID string `json:"campaign_id,omitempty"`

	// Action is the action name being bound, applied, or checked when the
	// error occurred, if applicable.
	Action string `json:"action,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information (e.g. the
	// failing invariant name, the violated temporal rule ID).
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.CampaignID != "" && e.Action != "" {
		return fmt.Sprintf("[%s] %s (campaign=%s, action=%s): %s",
			e.Class, e.Message, e.CampaignID, e.Action, e.unwrapMessage())
	}
	if e.CampaignID != "" {
		return fmt.Sprintf("[%s] %s (campaign=%s): %s",
			e.Class, e.Message, e.CampaignID, e.unwrapMessage())
	}
	return fmt.Sprintf("[%s] %s: %s", e.Class, e.Message, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// New creates a new classified error of the given class.
func New(class Class, message string, err error) *Error {
	return &Error{Class: class, Message: message, Err: err}
}

// NewCompilationError creates a new compilation-class error.
func NewCompilationError(message string, err error) *Error {
	return New(ClassCompilation, message, err)
}

// NewInvariantViolation creates a new invariant-violation-class error.
func NewInvariantViolation(message string, err error) *Error {
	return New(ClassInvariantViolation, message, err)
}

// NewTemporalViolation creates a new temporal-violation-class error.
func NewTemporalViolation(message string, err error) *Error {
	return New(ClassTemporalViolation, message, err)
}

// NewDiscrepancy creates a new discrepancy-class error.
func NewDiscrepancy(message string, err error) *Error {
	return New(ClassDiscrepancy, message, err)
}

// NewGuestCrash creates a new guest-crash-class error.
func NewGuestCrash(message string, err error) *Error {
	return New(ClassGuestCrash, message, err)
}

// NewGuestTimeout creates a new guest-timeout-class error.
func NewGuestTimeout(message string, err error) *Error {
	return New(ClassGuestTimeout, message, err)
}

// NewInternal creates a new internal-class error.
func NewInternal(message string, err error) *Error {
	return New(ClassInternal, message, err)
}

// WithCampaignID adds campaign context to an error.
func (e *Error) WithCampaignID(campaignID string) *Error {
	e.CampaignID = campaignID
	return e
}

// WithAction adds action context to an error.
func (e *Error) WithAction(action string) *Error {
	e.Action = action
	return e
}

// WithCode adds a machine-readable error code to an error.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsInvariantViolation returns true if the error is an invariant violation.
func IsInvariantViolation(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ClassInvariantViolation
	}
	return false
}

// IsTemporalViolation returns true if the error is a temporal violation.
func IsTemporalViolation(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ClassTemporalViolation
	}
	return false
}

// IsDiscrepancy returns true if the error is a model/guest discrepancy.
func IsDiscrepancy(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ClassDiscrepancy
	}
	return false
}

// IsGuestFailure returns true if the error originated from the guest
// (crash or timeout), as opposed to the model or the harness itself.
func IsGuestFailure(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ClassGuestCrash || e.Class == ClassGuestTimeout
	}
	return false
}

// IsFinding reports whether the error class corresponds to one of the
// finding kinds a campaign records, rather than a harness-internal failure.
func IsFinding(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Class {
	case ClassInvariantViolation, ClassTemporalViolation, ClassDiscrepancy,
		ClassGuestCrash, ClassGuestTimeout:
		return true
	default:
		return false
	}
}

// Common error codes for the tool surface (§7 addition).
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeCampaignNotRunning = "CAMPAIGN_NOT_RUNNING"
	CodeGuestTrap          = "GUEST_TRAP"
	CodeCompileRejected    = "COMPILE_REJECTED"
	CodeTimeout            = "TIMEOUT"
	CodeResourceExhausted  = "RESOURCE_EXHAUSTED"
	CodeInternal           = "INTERNAL_ERROR"
)
