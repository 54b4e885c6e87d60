package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeConfig, "margin too large")

	if err.Code != CodeConfig {
		t.Errorf("expected code=%s, got %s", CodeConfig, err.Code)
	}
	if err.Message != "margin too large" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if len(err.Stack) == 0 {
		t.Error("expected stack trace to be captured")
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "simple error",
			err:      New(CodeSchema, "column FileName1 not found"),
			contains: []string{"SCHEMA_ERROR", "column FileName1 not found"},
		},
		{
			name:     "error with op",
			err:      &Error{Code: CodeInternal, Message: "zip failed", Op: "archive.write"},
			contains: []string{"archive.write", "INTERNAL_ERROR", "zip failed"},
		},
		{
			name:     "item error names file and cause",
			err:      Item("photo.jpg", "fetch", fmt.Errorf("http 404")),
			contains: []string{"batch.fetch", "ITEM_ERROR", "photo.jpg", "http 404"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			str := tt.err.Error()
			for _, c := range tt.contains {
				if !strings.Contains(str, c) {
					t.Errorf("expected %q in %q", c, str)
				}
			}
		})
	}
}

func TestWrap(t *testing.T) {
	original := fmt.Errorf("disk full")
	wrapped := Wrap(original, "processor.archive", "upload failed")

	if wrapped.Code != CodeInternal {
		t.Errorf("expected code=%s, got %s", CodeInternal, wrapped.Code)
	}
	if errors.Unwrap(wrapped) != original {
		t.Error("Unwrap should return original error")
	}
	if Wrap(nil, "op", "msg") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapPreservesCode(t *testing.T) {
	wrapped := Wrap(Config("bad width"), "processor.params", "invalid params")

	if wrapped.Code != CodeConfig {
		t.Errorf("expected code to be preserved as %s, got %s", CodeConfig, wrapped.Code)
	}
	if !IsConfig(wrapped) {
		t.Error("expected IsConfig on wrapped error")
	}
}

func TestWrapWithCode(t *testing.T) {
	wrapped := WrapWithCode(fmt.Errorf("no header"), CodeSchema, "table.load", "unreadable table")
	if !IsSchema(wrapped) {
		t.Errorf("expected schema code, got %s", wrapped.Code)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeValidation, 400},
		{CodeConfig, 400},
		{CodeSchema, 400},
		{CodeNotFound, 404},
		{CodeConflict, 409},
		{CodeEmptyResult, 422},
		{CodeItem, 502},
		{CodeUnavailable, 503},
		{CodeTimeout, 504},
		{CodeInternal, 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code, "x").HTTPStatus(); got != tt.status {
				t.Errorf("expected status=%d, got %d", tt.status, got)
			}
		})
	}
}

func TestItemFields(t *testing.T) {
	err := Item("a.jpg", "decode", fmt.Errorf("bad magic"))
	fields := GetFields(err)

	if fields["file"] != "a.jpg" || fields["stage"] != "decode" {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestPredicates(t *testing.T) {
	if !IsEmptyResult(EmptyResult("nothing processed")) {
		t.Error("expected IsEmptyResult")
	}
	if !IsNotFound(NotFound("run", "run_1")) {
		t.Error("expected IsNotFound")
	}
	if IsConfig(fmt.Errorf("plain")) {
		t.Error("plain errors are internal")
	}
	if GetHTTPStatus(fmt.Errorf("plain")) != 500 {
		t.Error("expected 500 for plain error")
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("table", "file is required")
	if err.Code != CodeValidation || err.Fields["field"] != "table" {
		t.Errorf("unexpected error %#v", err)
	}
}

func TestStackTrace(t *testing.T) {
	stack := New(CodeInternal, "boom").StackTrace()
	if !strings.Contains(stack, ".go:") {
		t.Errorf("expected file references, got: %s", stack)
	}
}

func TestErrorIs(t *testing.T) {
	a := New(CodeConfig, "a")
	b := New(CodeConfig, "b")
	c := New(CodeSchema, "c")

	if !errors.Is(a, b) {
		t.Error("same code should match")
	}
	if errors.Is(a, c) {
		t.Error("different codes should not match")
	}

	var target *Error
	if !As(fmt.Errorf("ctx: %w", c), &target) || target.Code != CodeSchema {
		t.Error("expected As to find the schema error")
	}
}
