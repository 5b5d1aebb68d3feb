package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestRemoteError_Class(t *testing.T) {
	cases := []struct {
		name string
		err  *RemoteError
		want Class
	}{
		{"jwt expired code", &RemoteError{Status: 401, Code: "PGRST301", Message: "JWT expired"}, ClassAuth},
		{"unauthorized status", &RemoteError{Status: 401}, ClassAuth},
		{"rls", &RemoteError{Status: 403, Code: "42501", Message: `new row violates row-level security policy for table "active_games"`}, ClassPolicy},
		{"permission", &RemoteError{Code: "42501", Message: "permission denied for table games"}, ClassPermission},
		{"forbidden", &RemoteError{Status: 403}, ClassPermission},
		{"not authenticated", &RemoteError{Status: 400, Message: "User not authenticated"}, ClassAuth},
		{"network", &RemoteError{Err: errors.New("dial tcp: connection refused")}, ClassTransport},
		{"conflict", &RemoteError{Status: 409, Code: "23505", Message: "duplicate key"}, ClassOther},
		{"server", &RemoteError{Status: 500, Message: "internal"}, ClassOther},
	}
	for _, tc := range cases {
		if got := tc.err.Class(); got != tc.want {
			t.Fatalf("%s: class = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRecoverable(t *testing.T) {
	if Recoverable(nil) {
		t.Fatalf("nil is not recoverable")
	}
	if Recoverable(fmt.Errorf("save: %w", ErrNoCredential)) {
		t.Fatalf("missing credential must be surfaced")
	}
	if !Recoverable(fmt.Errorf("save: %w", &RemoteError{Status: 401})) {
		t.Fatalf("wrapped auth failure should be recoverable")
	}
	if !Recoverable(context.DeadlineExceeded) {
		t.Fatalf("deadline should count as transport")
	}
	if Recoverable(&RemoteError{Status: 500}) {
		t.Fatalf("server errors are surfaced")
	}
	if Recoverable(errors.New("encode failed")) {
		t.Fatalf("plain errors are surfaced")
	}
}

func TestTokenHolder(t *testing.T) {
	h := NewTokenHolder("  ")
	if _, ok := h.Token(); ok {
		t.Fatalf("blank token should be absent")
	}
	h.Set("abc")
	if tok, ok := h.Token(); !ok || tok != "abc" {
		t.Fatalf("Token = %q,%v", tok, ok)
	}
	h.Clear()
	if _, ok := h.Token(); ok {
		t.Fatalf("cleared token should be absent")
	}
}
