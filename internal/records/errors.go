package records

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes record store errors.
type ErrorCode string

const (
	// ErrCodeUnknownModel indicates the model is not declared in the schema.
	ErrCodeUnknownModel ErrorCode = "UNKNOWN_MODEL"

	// ErrCodeUnknownField indicates an attribute or relationship the model
	// does not declare, or a relationship used with the wrong kind.
	ErrCodeUnknownField ErrorCode = "UNKNOWN_FIELD"

	// ErrCodeDuplicateID indicates another record of the model already holds the id.
	ErrCodeDuplicateID ErrorCode = "DUPLICATE_ID"

	// ErrCodeDuplicateToken indicates the token generator repeated a token.
	ErrCodeDuplicateToken ErrorCode = "DUPLICATE_TOKEN"

	// ErrCodeMissingID indicates an operation that requires an id got none.
	ErrCodeMissingID ErrorCode = "MISSING_ID"

	// ErrCodeInvalidState indicates a lifecycle transition from the wrong state.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
)

// Error is returned by Store operations.
type Error struct {
	Code    ErrorCode
	Message string
	Model   string
	ID      string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Model != "" && e.ID != "" {
		return fmt.Sprintf("%s: %s (model=%s, id=%s)", e.Code, e.Message, e.Model, e.ID)
	}
	if e.Model != "" {
		return fmt.Sprintf("%s: %s (model=%s)", e.Code, e.Message, e.Model)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err is a record store Error with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
