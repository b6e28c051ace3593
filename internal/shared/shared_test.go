package shared

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestAppError(t *testing.T) {
	t.Run("Is matches kind sentinel", func(t *testing.T) {
		err := fmt.Errorf("fetch profile: %w", &AppError{Kind: KindNotFound, StatusCode: 404})
		if !errors.Is(err, ErrNotFound) {
			t.Error("expected errors.Is to match ErrNotFound")
		}
		if errors.Is(err, ErrUnauthorized) {
			t.Error("should not match another kind")
		}
		if KindOf(err) != KindNotFound {
			t.Errorf("expected KindNotFound, got %v", KindOf(err))
		}
	})

	t.Run("Unauthorized wraps cause", func(t *testing.T) {
		err := Unauthorized(ErrAuthCancelled)
		if !errors.Is(err, ErrAuthCancelled) {
			t.Error("expected cause to be reachable")
		}
		if !errors.Is(err, ErrUnauthorized) {
			t.Error("expected unauthorized kind")
		}
		if err.IsRetryable() {
			t.Error("cancellation must not be retryable")
		}
	})

	t.Run("retryable kinds", func(t *testing.T) {
		tc := []struct {
			kind Kind
			want bool
		}{
			{KindRateLimited, true},
			{KindServiceUnavailable, true},
			{KindServerError, true},
			{KindNetwork, true},
			{KindBadRequest, false},
			{KindUnauthorized, false},
			{KindForbidden, false},
			{KindNotFound, false},
			{KindDecode, false},
			{KindInvalidResponse, false},
		}
		for _, tt := range tc {
			t.Run(tt.kind.String(), func(t *testing.T) {
				if got := IsRetryable(NewError(tt.kind, nil)); got != tt.want {
					t.Errorf("IsRetryable(%v) = %v, want %v", tt.kind, got, tt.want)
				}
			})
		}
	})

	t.Run("messages", func(t *testing.T) {
		rl := &AppError{Kind: KindRateLimited, RetryAfter: 7 * time.Second}
		if !strings.Contains(rl.Error(), "7 seconds") {
			t.Errorf("unexpected message %q", rl.Error())
		}
		se := &AppError{Kind: KindServerError, StatusCode: 502}
		if !strings.Contains(se.Error(), "502") {
			t.Errorf("unexpected message %q", se.Error())
		}
		br := &AppError{Kind: KindBadRequest, Message: "Invalid limit"}
		if br.Error() != "bad request: Invalid limit" {
			t.Errorf("unexpected message %q", br.Error())
		}
	})

	t.Run("plain errors", func(t *testing.T) {
		if KindOf(errors.New("boom")) != KindUnknown {
			t.Error("plain error should be KindUnknown")
		}
		if IsKind(nil, KindUnknown) {
			t.Error("nil should not match any kind")
		}
		if IsRetryable(errors.New("boom")) {
			t.Error("plain error should not be retryable")
		}
	})
}

func TestHelpers(t *testing.T) {
	t.Run("Clamp", func(t *testing.T) {
		tc := []struct{ v, want int }{{-10, 0}, {0, 0}, {55, 55}, {100, 100}, {150, 100}}
		for _, tt := range tc {
			if got := Clamp(tt.v, 0, 100); got != tt.want {
				t.Errorf("Clamp(%d) = %d, want %d", tt.v, got, tt.want)
			}
		}
	})

	t.Run("GenerateState", func(t *testing.T) {
		a, b := GenerateState(), GenerateState()
		if a == b {
			t.Error("states should differ")
		}
		if len(a) != 32 || strings.Contains(a, "-") {
			t.Errorf("unexpected state %q", a)
		}
	})

	t.Run("Logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "test")
		SetLogLevel(logger, log.DebugLevel)
		logger.Debug("hello")
		if !strings.Contains(buf.String(), "component=test") {
			t.Errorf("expected key/value in output, got %q", buf.String())
		}
	})

	t.Run("browserCommand", func(t *testing.T) {
		if browserCommand("plan9", "http://x") != nil {
			t.Error("expected nil for unsupported platform")
		}
		cmd := browserCommand("darwin", "http://x")
		if cmd == nil || cmd.Args[0] != "open" {
			t.Errorf("unexpected command %v", cmd)
		}
	})

	t.Run("OpenBrowser unsupported", func(t *testing.T) {
		orig := getRuntime
		defer func() { getRuntime = orig }()
		getRuntime = func() string { return "plan9" }

		if err := OpenBrowser("http://x"); err == nil {
			t.Error("expected error")
		}
	})
}
