package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "invalid input")

	if err.Code != CodeValidation {
		t.Errorf("expected code=%s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "invalid input" {
		t.Errorf("expected message='invalid input', got %s", err.Message)
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
			err:      New(CodeValidation, "invalid"),
			contains: []string{"VALIDATION_ERROR", "invalid"},
		},
		{
			name: "error with op",
			err: &Error{
				Code:    CodeTranscodeFailed,
				Message: "ffmpeg exited 1",
				Op:      "render.transcode",
			},
			contains: []string{"render.transcode", "TRANSCODE_FAILED", "ffmpeg exited 1"},
		},
		{
			name: "error with underlying",
			err: &Error{
				Code:    CodeUploadFailed,
				Message: "host rejected upload",
				Err:     fmt.Errorf("http 500"),
			},
			contains: []string{"host rejected upload", "http 500"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			str := tt.err.Error()
			for _, c := range tt.contains {
				if !strings.Contains(str, c) {
					t.Errorf("expected error string to contain %q, got: %s", c, str)
				}
			}
		})
	}
}

func TestWrap(t *testing.T) {
	original := fmt.Errorf("original error")
	wrapped := Wrap(original, "store.get", "load job failed")

	if wrapped.Code != CodeInternal {
		t.Errorf("expected code=%s, got %s", CodeInternal, wrapped.Code)
	}
	if wrapped.Op != "store.get" {
		t.Errorf("expected op='store.get', got %s", wrapped.Op)
	}
	if errors.Unwrap(wrapped) != original {
		t.Error("Unwrap should return original error")
	}
	if Wrap(nil, "op", "message") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapPreservesCode(t *testing.T) {
	original := TranscodeTimeout(time.Minute)
	wrapped := Wrap(original, "processor.render", "render failed")

	if wrapped.Code != CodeTranscodeTimeout {
		t.Errorf("expected code to be preserved as %s, got %s", CodeTranscodeTimeout, wrapped.Code)
	}
	if wrapped.Fields["timeout"] != "1m0s" {
		t.Errorf("expected timeout field to survive wrapping, got %v", wrapped.Fields["timeout"])
	}
}

func TestWrapWithCode(t *testing.T) {
	wrapped := WrapWithCode(fmt.Errorf("connection reset"), CodeUploadFailed, "host.upload", "upload failed")

	if wrapped.Code != CodeUploadFailed {
		t.Errorf("expected code=%s, got %s", CodeUploadFailed, wrapped.Code)
	}
	if WrapWithCode(nil, CodeUploadFailed, "op", "msg") != nil {
		t.Error("WrapWithCode(nil) should return nil")
	}
}

func TestWithFields(t *testing.T) {
	err := New(CodeValidation, "invalid").
		WithField("field", "photos").
		WithFields(map[string]any{"index": 2, "limit": 8})

	if err.Fields["field"] != "photos" {
		t.Errorf("expected field='photos', got %v", err.Fields["field"])
	}
	if len(err.Fields) != 3 {
		t.Errorf("expected 3 fields, got %d", len(err.Fields))
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeValidation, 400},
		{CodeNotFound, 404},
		{CodeConflict, 409},
		{CodeFailedPrecond, 412},
		{CodePayloadTooLarge, 413},
		{CodeResourceExhausted, 429},
		{CodeInternal, 500},
		{CodeInputFailed, 500},
		{CodeTranscodeFailed, 502},
		{CodeUploadFailed, 502},
		{CodeUnavailable, 503},
		{CodeTimeout, 504},
		{CodeTranscodeTimeout, 504},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "test")
			if err.HTTPStatus() != tt.status {
				t.Errorf("expected status=%d, got %d", tt.status, err.HTTPStatus())
			}
		})
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		err := NotFound("render job", "job_123")
		if err.Code != CodeNotFound {
			t.Errorf("expected code=%s, got %s", CodeNotFound, err.Code)
		}
		if err.Fields["id"] != "job_123" {
			t.Errorf("expected id='job_123', got %v", err.Fields["id"])
		}
	})

	t.Run("ValidationField", func(t *testing.T) {
		err := ValidationField("photos", "too many photos")
		if err.Code != CodeValidation {
			t.Errorf("expected code=%s, got %s", CodeValidation, err.Code)
		}
		if err.Fields["field"] != "photos" {
			t.Errorf("expected field='photos', got %v", err.Fields["field"])
		}
	})

	t.Run("TranscodeTimeout", func(t *testing.T) {
		err := TranscodeTimeout(90 * time.Second)
		if err.Code != CodeTranscodeTimeout {
			t.Errorf("expected code=%s, got %s", CodeTranscodeTimeout, err.Code)
		}
		if !strings.Contains(err.Message, "1m30s") {
			t.Errorf("expected limit in message, got %s", err.Message)
		}
	})

	t.Run("FailedPrecondition", func(t *testing.T) {
		if FailedPrecondition("x").Code != CodeFailedPrecond {
			t.Error("expected FAILED_PRECONDITION")
		}
	})
}

func TestGetCode(t *testing.T) {
	if GetCode(New(CodeNotFound, "nf")) != CodeNotFound {
		t.Error("expected NOT_FOUND from coded error")
	}
	if GetCode(fmt.Errorf("plain")) != CodeInternal {
		t.Error("expected INTERNAL_ERROR from standard error")
	}
	wrapped := fmt.Errorf("outer: %w", New(CodeUploadFailed, "inner"))
	if GetCode(wrapped) != CodeUploadFailed {
		t.Errorf("expected UPLOAD_FAILED through fmt wrapping, got %s", GetCode(wrapped))
	}
}

func TestGetHTTPStatusAndFields(t *testing.T) {
	err := ValidationField("audio", "bad audio")
	if GetHTTPStatus(err) != 400 {
		t.Errorf("expected 400, got %d", GetHTTPStatus(err))
	}
	if GetFields(err)["field"] != "audio" {
		t.Errorf("expected field=audio, got %v", GetFields(err))
	}
	if GetHTTPStatus(fmt.Errorf("std")) != 500 {
		t.Error("expected 500 for standard error")
	}
	if GetFields(fmt.Errorf("std")) != nil {
		t.Error("expected nil fields for standard error")
	}
}

func TestIsJobFailure(t *testing.T) {
	for _, c := range []Code{CodeInputFailed, CodeTranscodeFailed, CodeTranscodeTimeout, CodeUploadFailed} {
		if !IsJobFailure(c) {
			t.Errorf("expected %s to be a job failure code", c)
		}
	}
	if IsJobFailure(CodeValidation) {
		t.Error("validation is rejected synchronously, not a job failure")
	}
}

func TestErrorIs(t *testing.T) {
	err1 := New(CodeNotFound, "error 1")
	err2 := New(CodeNotFound, "error 2")
	err3 := New(CodeValidation, "error 3")

	if !errors.Is(err1, err2) {
		t.Error("expected errors with same code to match with Is")
	}
	if errors.Is(err1, err3) {
		t.Error("expected errors with different codes to not match")
	}
}

func TestStackTrace(t *testing.T) {
	stack := New(CodeInternal, "test error").StackTrace()
	if !strings.Contains(stack, ".go:") {
		t.Errorf("expected stack trace to contain file references, got: %s", stack)
	}
}
