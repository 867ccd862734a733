package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_CodeAndStatus(t *testing.T) {
	tests := []struct {
		err        *Error
		wantCode   string
		wantStatus int
	}{
		{BadRequest("Cannot start %s experiment", "RUNNING"), "BadRequest", http.StatusBadRequest},
		{Unauthorized("Invalid or expired token"), "Unauthorized", http.StatusUnauthorized},
		{Forbidden(""), "Forbidden", http.StatusForbidden},
		{NotFound("Experiment with id: %d does not exist", 3), "NotFound", http.StatusNotFound},
		{Validation(map[string]string{"username": "cannot be blank"}), "UnprocessableEntity", http.StatusUnprocessableEntity},
		{Upstream(errors.New("broker down"), "unreachable"), "BadGateway", http.StatusBadGateway},
		{System(errors.New("disk full")), "SystemError", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			if got := tt.err.Code(); got != tt.wantCode {
				t.Errorf("Code() = %q, want %q", got, tt.wantCode)
			}
			if got := tt.err.Status(); got != tt.wantStatus {
				t.Errorf("Status() = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}

func TestForbidden_Message(t *testing.T) {
	if got := Forbidden("").Message; got != "" {
		t.Errorf("Forbidden(\"\").Message = %q, want empty", got)
	}

	want := "Unauthorized: device-7 is not allowed to access or change this resource"
	if got := Forbidden("device-7").Message; got != want {
		t.Errorf("Forbidden(name).Message = %q, want %q", got, want)
	}
}

func TestAs_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("starting experiment: %w", BadRequest("Experiment is already completed"))

	e, ok := As(wrapped)
	if !ok {
		t.Fatal("As() = false, want true")
	}
	if e.Message != "Experiment is already completed" {
		t.Errorf("Message = %q", e.Message)
	}
	if !IsKind(wrapped, KindBadRequest) {
		t.Error("IsKind(KindBadRequest) = false, want true")
	}
	if IsKind(errors.New("plain"), KindBadRequest) {
		t.Error("IsKind() on plain error = true, want false")
	}
}

func TestSystem_HidesCause(t *testing.T) {
	cause := errors.New("no such table: experiments")
	e := System(cause)

	if e.Message != SystemMessage {
		t.Errorf("Message = %q, want generic system message", e.Message)
	}
	if !errors.Is(e, cause) {
		t.Error("System() should keep the cause in the chain for logging")
	}
}
