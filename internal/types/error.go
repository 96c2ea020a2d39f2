package types

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error kind tags. Every error surfaced by the service carries exactly one.
const (
	KindValidation  = "validation"
	KindForbidden   = "forbidden"
	KindNotFound    = "not_found"
	KindConflict    = "conflict"
	KindParse       = "parse"
	KindUnavailable = "unavailable"
)

type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// Validation rejects a malformed payload before any persistence happens.
func Validation(format string, args ...interface{}) *CustomError {
	return &CustomError{
		Code:    fiber.StatusBadRequest,
		Message: fmt.Sprintf(format, args...),
		Type:    KindValidation,
	}
}

// Forbidden rejects an actor that is not the current status owner, not a
// party to the report, or is touching a terminal report.
func Forbidden(format string, args ...interface{}) *CustomError {
	return &CustomError{
		Code:    fiber.StatusForbidden,
		Message: fmt.Sprintf(format, args...),
		Type:    KindForbidden,
	}
}

func NotFound(format string, args ...interface{}) *CustomError {
	return &CustomError{
		Code:    fiber.StatusNotFound,
		Message: fmt.Sprintf(format, args...),
		Type:    KindNotFound,
	}
}

// Conflict reports a lost concurrent-transition race. The caller must
// re-fetch the report and retry against its current status.
func Conflict(format string, args ...interface{}) *CustomError {
	return &CustomError{
		Code:    fiber.StatusConflict,
		Message: fmt.Sprintf(format, args...),
		Type:    KindConflict,
	}
}

// Parse reports a malformed PDF template. Fatal to the load operation.
func Parse(format string, args ...interface{}) *CustomError {
	return &CustomError{
		Code:    fiber.StatusUnprocessableEntity,
		Message: fmt.Sprintf(format, args...),
		Type:    KindParse,
	}
}

// Unavailable reports a best-effort side channel failure (mail, calendar,
// snapshot store). It is the only kind that is logged and swallowed; it
// never aborts a committed transition.
func Unavailable(format string, args ...interface{}) *CustomError {
	return &CustomError{
		Code:    fiber.StatusServiceUnavailable,
		Message: fmt.Sprintf(format, args...),
		Type:    KindUnavailable,
	}
}

func kindOf(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ""
}

func IsValidation(err error) bool  { return kindOf(err) == KindValidation }
func IsForbidden(err error) bool   { return kindOf(err) == KindForbidden }
func IsNotFound(err error) bool    { return kindOf(err) == KindNotFound }
func IsConflict(err error) bool    { return kindOf(err) == KindConflict }
func IsParse(err error) bool       { return kindOf(err) == KindParse }
func IsUnavailable(err error) bool { return kindOf(err) == KindUnavailable }
