// Package errors provides Lienzo's coded error type.
//
// Codes map onto the failure taxonomy of a conversion run: configuration and
// schema problems abort a run before any work starts, item errors are
// recorded per work item, and an empty result is informational.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Code categorizes an error.
type Code string

const (
	CodeInternal    Code = "INTERNAL_ERROR"
	CodeValidation  Code = "VALIDATION_ERROR"
	CodeNotFound    Code = "NOT_FOUND"
	CodeConflict    Code = "CONFLICT"
	CodeTimeout     Code = "TIMEOUT"
	CodeUnavailable Code = "UNAVAILABLE"

	// CodeConfig: invalid canvas geometry or run parameters.
	CodeConfig Code = "CONFIG_ERROR"
	// CodeSchema: a declared column is absent from the input table.
	CodeSchema Code = "SCHEMA_ERROR"
	// CodeItem: one work item failed (fetch, decode, render, encode).
	CodeItem Code = "ITEM_ERROR"
	// CodeEmptyResult: a run finished without a single success.
	CodeEmptyResult Code = "EMPTY_RESULT"
)

// Error carries a code, the failing operation and optional context fields.
type Error struct {
	Code    Code
	Message string
	// Op is the operation that failed, e.g. "batch.fetch".
	Op     string
	Err    error
	Fields map[string]any
	Stack  []Frame
}

// Frame is one captured stack frame.
type Frame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

func (e *Error) Error() string {
	var b strings.Builder

	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Code != "" {
		b.WriteString("[")
		b.WriteString(string(e.Code))
		b.WriteString("] ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithField adds a context field.
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// HTTPStatus maps the code to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeConfig, CodeSchema:
		return 400
	case CodeNotFound:
		return 404
	case CodeConflict:
		return 409
	case CodeEmptyResult:
		return 422
	case CodeItem:
		return 502
	case CodeUnavailable:
		return 503
	case CodeTimeout:
		return 504
	default:
		return 500
	}
}

// StackTrace formats the captured frames, one per line.
func (e *Error) StackTrace() string {
	var b strings.Builder
	for _, f := range e.Stack {
		fmt.Fprintf(&b, "  %s:%d %s\n", f.File, f.Line, f.Function)
	}
	return b.String()
}

// New creates an error with the given code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Stack: captureStack(2)}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Stack: captureStack(2)}
}

// Wrap adds op and message to err. A wrapped *Error keeps its code and fields.
func Wrap(err error, op string, message string) *Error {
	if err == nil {
		return nil
	}

	code := CodeInternal
	var fields map[string]any
	var e *Error
	if errors.As(err, &e) {
		code = e.Code
		fields = e.Fields
	}

	return &Error{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
		Fields:  fields,
		Stack:   captureStack(2),
	}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, op string, format string, args ...any) *Error {
	return Wrap(err, op, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps err and forces code.
func WrapWithCode(err error, code Code, op string, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Op: op, Err: err, Stack: captureStack(2)}
}

// Config reports invalid run parameters or canvas geometry.
func Config(format string, args ...any) *Error {
	return &Error{Code: CodeConfig, Message: fmt.Sprintf(format, args...), Stack: captureStack(2)}
}

// Schema reports a table that does not carry the declared columns.
func Schema(format string, args ...any) *Error {
	return &Error{Code: CodeSchema, Message: fmt.Sprintf(format, args...), Stack: captureStack(2)}
}

// Item reports the failure of one work item. The message always names the
// file so that it can be shown to the operator as-is.
func Item(name, stage string, err error) *Error {
	return &Error{
		Code:    CodeItem,
		Message: name,
		Op:      "batch." + stage,
		Err:     err,
		Fields:  map[string]any{"file": name, "stage": stage},
	}
}

// EmptyResult reports a run that produced nothing.
func EmptyResult(message string) *Error {
	return &Error{Code: CodeEmptyResult, Message: message}
}

// NotFound reports a missing resource.
func NotFound(resource string, id string) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s not found: %s", resource, id)).
		WithField("resource", resource).
		WithField("id", id)
}

// Validation reports a malformed request.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// ValidationField reports a malformed request field.
func ValidationField(field string, message string) *Error {
	return New(CodeValidation, message).WithField("field", field)
}

// GetCode extracts the code, CodeInternal for foreign errors.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// GetHTTPStatus extracts the HTTP status, 500 for foreign errors.
func GetHTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return 500
}

// GetFields extracts context fields.
func GetFields(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) && e.Fields != nil {
		return e.Fields
	}
	return nil
}

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

func IsConfig(err error) bool      { return IsCode(err, CodeConfig) }
func IsSchema(err error) bool      { return IsCode(err, CodeSchema) }
func IsEmptyResult(err error) bool { return IsCode(err, CodeEmptyResult) }
func IsNotFound(err error) bool    { return IsCode(err, CodeNotFound) }

func captureStack(skip int) []Frame {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip+1, pcs[:])

	frames := make([]Frame, 0, n)
	callersFrames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := callersFrames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			frames = append(frames, Frame{File: frame.File, Line: frame.Line, Function: frame.Function})
		}
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// As is errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
