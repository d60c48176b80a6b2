package rpcontract

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	CodeInvalidArgument   ErrorCode = "invalid_argument"
	CodeInvalidReturnType ErrorCode = "invalid_return_type"
	CodeBuilderConsumed   ErrorCode = "builder_consumed"
	CodeBadPropertyValue  ErrorCode = "bad_property_value"
	CodeInvalidModel      ErrorCode = "invalid_model"
	CodeNotFound          ErrorCode = "not_found"
	CodeMethodNotAllowed  ErrorCode = "method_not_allowed"
	CodeInternal          ErrorCode = "internal"
)

// Error is the standard error value for contract construction and the JSON
// error envelope of the dev server.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error carrying the same code.
// This lets callers match wrapped errors against the package sentinels
// with errors.Is regardless of message or details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetail returns a new Error with the key-value pair added to details.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

var (
	// ErrInvalidReturnType is returned when a declared context method does
	// not return a class or interface type with a package.
	ErrInvalidReturnType = NewError(CodeInvalidReturnType, "return type is not a class or interface")

	// ErrBuilderConsumed is returned by any builder call made after Build.
	ErrBuilderConsumed = NewError(CodeBuilderConsumed, "builder already built")

	// ErrBadPropertyValue matches every *resources.BadPropertyValueError.
	ErrBadPropertyValue = NewError(CodeBadPropertyValue, "no such property")
)

// AsError maps an arbitrary error to an *Error.
// Validation errors become CodeInvalidArgument with one detail per field;
// joined errors take the code of their first member.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	if u, ok := err.(interface{ Unwrap() []error }); ok {
		errs := u.Unwrap()
		if len(errs) > 0 {
			first := AsError(errs[0])
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}
			return &Error{
				Code:    first.Code,
				Message: strings.Join(msgs, "; "),
				Details: first.Details,
			}
		}
	}

	var e *Error
	if errors.As(err, &e) {
		if err == error(e) {
			return e
		}
		return &Error{Code: e.Code, Message: err.Error(), Details: e.Details}
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		details := make(map[string]any)
		messages := make([]string, 0, len(valErrs))
		for _, ve := range valErrs {
			msg := formatValidationError(ve)
			details[ve.Field()] = msg
			messages = append(messages, ve.Field()+": "+msg)
		}
		return &Error{
			Code:    CodeInvalidArgument,
			Message: strings.Join(messages, "; "),
			Details: details,
		}
	}

	return NewError(CodeInternal, err.Error())
}

// HTTPStatus maps an ErrorCode to an HTTP status code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument, CodeBadPropertyValue:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeInvalidModel, CodeInvalidReturnType:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required", "required_if":
		return "required"
	case "min":
		return fmt.Sprintf("must have at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must have at most %s", ve.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	case "dirpath":
		return "must be a directory path"
	case "file":
		return "must be an existing file"
	case "goident":
		return "must be a Go identifier"
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
