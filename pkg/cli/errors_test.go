package cli

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("engine.policy_file", "must not be empty")
	if !strings.Contains(err.Error(), "engine.policy_file") {
		t.Errorf("error %q does not name the field", err.Error())
	}
	if !strings.Contains(err.Error(), "must not be empty") {
		t.Errorf("error %q does not carry the message", err.Error())
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewCommandError("serve", cause)

	if !strings.Contains(err.Error(), "serve") {
		t.Errorf("error %q does not name the command", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable via errors.Is")
	}
}

func TestExitError(t *testing.T) {
	silent := NewExitError(1, nil)
	if silent.Code != 1 {
		t.Errorf("code = %d, want 1", silent.Code)
	}
	if silent.Error() == "" {
		t.Error("empty error string")
	}

	cause := errors.New("policy unreadable")
	wrapped := NewExitError(2, cause)
	if wrapped.Error() != "policy unreadable" {
		t.Errorf("error = %q, want the cause's message", wrapped.Error())
	}
	if !errors.Is(wrapped, cause) {
		t.Error("cause not reachable via errors.Is")
	}

	var exitErr *ExitError
	if !errors.As(error(wrapped), &exitErr) || exitErr.Code != 2 {
		t.Error("errors.As did not recover the exit code")
	}
}
