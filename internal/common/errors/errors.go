package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode is a stable, client visible error identifier
type ErrorCode string

const (
	// General
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeBadRequest   ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"

	// Giveaways
	ErrCodeGiveawayNotFound        ErrorCode = "GIVEAWAY_NOT_FOUND"
	ErrCodeEntryNotFound           ErrorCode = "ENTRY_NOT_FOUND"
	ErrCodeGiveawayClosed          ErrorCode = "GIVEAWAY_CLOSED"
	ErrCodeLoginRequired           ErrorCode = "LOGIN_REQUIRED"
	ErrCodeAlreadyJoined           ErrorCode = "ALREADY_JOINED"
	ErrCodeNoAlternativeCandidates ErrorCode = "NO_ALTERNATIVE_CANDIDATES"
	ErrCodeConcurrencyConflict     ErrorCode = "CONCURRENCY_CONFLICT"

	// Infrastructure
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeLockError     ErrorCode = "LOCK_ERROR"
)

const internalMessage = "Internal server error"

// AppError is a typed application error
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Context   map[string]string      `json:"context,omitempty"`
	Stack     []string               `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	UserID    string                 `json:"-"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError by code, so errors.Is(err, &AppError{Code: X}) works.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound ||
		e.Code == ErrCodeGiveawayNotFound ||
		e.Code == ErrCodeEntryNotFound
}

func (e *AppError) IsValidation() bool {
	return e.Code == ErrCodeValidation || e.Code == ErrCodeBadRequest
}

func (e *AppError) IsUnauthorized() bool {
	return e.Code == ErrCodeUnauthorized || e.Code == ErrCodeForbidden || e.Code == ErrCodeLoginRequired
}

func (e *AppError) IsInternal() bool {
	return e.Code == ErrCodeInternal ||
		e.Code == ErrCodeDatabaseError ||
		e.Code == ErrCodeLockError
}

// Public returns the form of the error that is safe to send to clients.
// Internal errors lose their message and details.
func (e *AppError) Public() *AppError {
	if !e.IsInternal() {
		return e
	}
	return &AppError{
		Code:      ErrCodeInternal,
		Message:   internalMessage,
		Timestamp: e.Timestamp,
		RequestID: e.RequestID,
		Context:   e.Context,
	}
}

func (e *AppError) WithContext(key, value string) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

func (e *AppError) WithUserID(userID string) *AppError {
	e.UserID = userID
	return e
}

// New creates an application error and captures the caller stack
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Stack:     getStackTrace(),
	}
}

// Wrap attaches a code and message to an existing error
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func getStackTrace() []string {
	var stack []string
	for i := 2; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		// skip frames of this package
		if strings.Contains(fn.Name(), "internal/common/errors") {
			continue
		}
		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		if len(stack) >= 10 {
			break
		}
	}
	return stack
}

// Constructors for the common cases

func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

func NewGiveawayNotFoundError(giveawayID string) *AppError {
	return New(ErrCodeGiveawayNotFound, fmt.Sprintf("Giveaway not found: %s", giveawayID)).
		WithDetail("giveaway_id", giveawayID)
}

func NewEntryNotFoundError(entryID string) *AppError {
	return New(ErrCodeEntryNotFound, fmt.Sprintf("Entry not found: %s", entryID)).
		WithDetail("entry_id", entryID)
}

func NewClosedError(giveawayID string) *AppError {
	return New(ErrCodeGiveawayClosed, "Giveaway is not accepting entries").
		WithDetail("giveaway_id", giveawayID)
}

func NewLoginRequiredError(giveawayID string) *AppError {
	return New(ErrCodeLoginRequired, "Login is required to join this giveaway").
		WithDetail("giveaway_id", giveawayID)
}

func NewDuplicateError(giveawayID string) *AppError {
	return New(ErrCodeAlreadyJoined, "Already registered in this giveaway").
		WithDetail("giveaway_id", giveawayID)
}

func NewNoAlternativeCandidatesError(giveawayID string, position int) *AppError {
	return New(ErrCodeNoAlternativeCandidates, "No alternative candidates for this position").
		WithDetail("giveaway_id", giveawayID).
		WithDetail("position", position)
}

func NewConcurrencyConflictError(giveawayID string, err error) *AppError {
	return Wrap(err, ErrCodeConcurrencyConflict, "Giveaway is busy, retry later").
		WithDetail("giveaway_id", giveawayID)
}

func NewUnauthorizedError(reason string) *AppError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("Unauthorized: %s", reason)).
		WithDetail("reason", reason)
}

func NewForbiddenError(reason string) *AppError {
	return New(ErrCodeForbidden, fmt.Sprintf("Forbidden: %s", reason)).
		WithDetail("reason", reason)
}

func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, fmt.Sprintf("Database operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewLockError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeLockError, fmt.Sprintf("Lock operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// AsAppError finds the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err != nil && errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
