package common

import (
	"errors"
	"net/http"
)

// ErrorCode identifies an error kind independently of its message.
type ErrorCode struct {
	Code     string // e.g. VAL_002
	Category string // Validation, Business, Database, System
}

var (
	CodeValidation = ErrorCode{Code: "VAL", Category: "Validation"}
	CodeBusiness   = ErrorCode{Code: "BIZ", Category: "Business"}

	CodeMissingSelection    = ErrorCode{Code: "VAL_001", Category: "Validation"}
	CodeMissingVariation    = ErrorCode{Code: "VAL_002", Category: "Validation"}
	CodeUnexpectedVariation = ErrorCode{Code: "VAL_003", Category: "Validation"}
	CodeZeroPricedLine      = ErrorCode{Code: "VAL_004", Category: "Validation"}
	CodeInvalidQuantity     = ErrorCode{Code: "VAL_005", Category: "Validation"}
	CodeEmptyOrder          = ErrorCode{Code: "VAL_006", Category: "Validation"}
	CodeItemUnavailable     = ErrorCode{Code: "VAL_007", Category: "Validation"}
	CodeMissingTables       = ErrorCode{Code: "VAL_008", Category: "Validation"}
	CodeMissingUser         = ErrorCode{Code: "VAL_009", Category: "Validation"}
	CodeInvalidOrderType    = ErrorCode{Code: "VAL_010", Category: "Validation"}
	CodeInvalidDiscount     = ErrorCode{Code: "VAL_011", Category: "Validation"}
	CodeInvalidInput        = ErrorCode{Code: "VAL_012", Category: "Validation"}

	CodeInvalidTransition    = ErrorCode{Code: "BIZ_001", Category: "Business"}
	CodeOrderLocked          = ErrorCode{Code: "BIZ_002", Category: "Business"}
	CodeDiscountInactive     = ErrorCode{Code: "BIZ_003", Category: "Business"}
	CodePriceMismatch        = ErrorCode{Code: "BIZ_004", Category: "Business"}
	CodeDuplicateRequest     = ErrorCode{Code: "BIZ_005", Category: "Business"}
	CodeConfirmationRequired = ErrorCode{Code: "BIZ_006", Category: "Business"}
	CodeNotInTrash           = ErrorCode{Code: "BIZ_007", Category: "Business"}

	CodeNotFound  = ErrorCode{Code: "DB_001", Category: "Database"}
	CodeConflict  = ErrorCode{Code: "DB_002", Category: "Database"}
	CodeTransient = ErrorCode{Code: "SYS_001", Category: "System"}
	CodeInternal  = ErrorCode{Code: "SYS_002", Category: "System"}
	CodeAuth      = ErrorCode{Code: "AUTH_001", Category: "Authentication"}
)

// Error is the application error carried from the core up to the HTTP layer.
type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Details    any
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches on the error code so that sentinels still match after WithDetails or Wrap.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code.Code == t.Code.Code
}

// WithDetails returns a copy of e carrying details for the client.
func (e *Error) WithDetails(details any) *Error {
	c := *e
	c.Details = details
	return &c
}

// Wrap returns a copy of e that keeps err as its cause.
func (e *Error) Wrap(err error) *Error {
	c := *e
	c.cause = err
	return &c
}

// NewError creates an application error.
func NewError(code ErrorCode, message string, statusCode int, details any) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

var (
	ErrMissingSelection    = NewError(CodeMissingSelection, "line has no item selected", http.StatusBadRequest, nil)
	ErrMissingVariation    = NewError(CodeMissingVariation, "item requires a variation", http.StatusBadRequest, nil)
	ErrUnexpectedVariation = NewError(CodeUnexpectedVariation, "item has no variations", http.StatusBadRequest, nil)
	ErrZeroPricedLine      = NewError(CodeZeroPricedLine, "line resolved to a zero price", http.StatusBadRequest, nil)
	ErrInvalidQuantity     = NewError(CodeInvalidQuantity, "quantity must be at least 1", http.StatusBadRequest, nil)
	ErrEmptyOrder          = NewError(CodeEmptyOrder, "order has no items", http.StatusBadRequest, nil)
	ErrItemUnavailable     = NewError(CodeItemUnavailable, "item is not available", http.StatusBadRequest, nil)
	ErrMissingTables       = NewError(CodeMissingTables, "dine-in order requires at least one table", http.StatusBadRequest, nil)
	ErrMissingUser         = NewError(CodeMissingUser, "order requires a staff user", http.StatusBadRequest, nil)
	ErrInvalidOrderType    = NewError(CodeInvalidOrderType, "unknown order type", http.StatusBadRequest, nil)
	ErrInvalidDiscount     = NewError(CodeInvalidDiscount, "invalid discount", http.StatusBadRequest, nil)
	ErrInvalidInput        = NewError(CodeInvalidInput, "invalid request payload", http.StatusBadRequest, nil)

	ErrInvalidTransition    = NewError(CodeInvalidTransition, "status transition not allowed", http.StatusUnprocessableEntity, nil)
	ErrOrderLocked          = NewError(CodeOrderLocked, "order can no longer be edited", http.StatusUnprocessableEntity, nil)
	ErrDiscountInactive     = NewError(CodeDiscountInactive, "discount is not active", http.StatusUnprocessableEntity, nil)
	ErrPriceMismatch        = NewError(CodePriceMismatch, "submitted prices do not match the catalog", http.StatusConflict, nil)
	ErrDuplicateRequest     = NewError(CodeDuplicateRequest, "idempotency key already used", http.StatusConflict, nil)
	ErrConfirmationRequired = NewError(CodeConfirmationRequired, "permanent delete requires confirmation", http.StatusPreconditionRequired, nil)
	ErrNotInTrash           = NewError(CodeNotInTrash, "order must be moved to trash first", http.StatusUnprocessableEntity, nil)

	ErrNotFound     = NewError(CodeNotFound, "resource not found", http.StatusNotFound, nil)
	ErrConflict     = NewError(CodeConflict, "order was modified by another request", http.StatusConflict, nil)
	ErrTransient    = NewError(CodeTransient, "temporary failure, retry the request", http.StatusServiceUnavailable, nil)
	ErrInternal     = NewError(CodeInternal, "internal error", http.StatusInternalServerError, nil)
	ErrUnauthorized = NewError(CodeAuth, "missing or invalid token", http.StatusUnauthorized, nil)
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code.Category == "Validation"
}

// StatusOf returns the HTTP status carried by err, 500 for foreign errors.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.StatusCode != 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}
