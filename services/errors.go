package services

import "fmt"

// Business rule codes carried by BusinessError so callers can render an
// actionable message.
const (
	CodeTicketNotOpen      = "TICKET_NOT_OPEN"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeTableUnavailable   = "TABLE_UNAVAILABLE"
	CodeTableMismatch      = "TABLE_MISMATCH"
	CodeCannotMoveAllItems = "CANNOT_MOVE_ALL_ITEMS"
)

// ValidationError marks malformed input. The caller fixes the request;
// never retried automatically.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a missing ticket, item, table or product.
type NotFoundError struct {
	Entity string
	ID     interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// BusinessError marks a domain rule violation identified by Code.
type BusinessError struct {
	Code string
	Msg  string
}

func (e *BusinessError) Error() string { return e.Msg }

func NewBusinessError(code, format string, args ...interface{}) *BusinessError {
	return &BusinessError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// ConflictError marks a lost race with a concurrent mutation of the same
// ticket. The whole operation is safe to retry.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }
