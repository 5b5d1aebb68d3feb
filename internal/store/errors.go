package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

// ErrNoCredential is returned by remote adapters when no bearer credential is available.
const ErrNoCredential staticErr = "remote credential is not available"

// Class groups remote failures by how the gateway treats them.
type Class int

const (
	ClassOther Class = iota
	ClassAuth
	ClassPolicy
	ClassPermission
	ClassTransport
)

func (c Class) String() string {
	switch c {
	case ClassAuth:
		return "auth"
	case ClassPolicy:
		return "policy"
	case ClassPermission:
		return "permission"
	case ClassTransport:
		return "transport"
	default:
		return "other"
	}
}

// RemoteError is a failure reported by a remote backend.
type RemoteError struct {
	Op      string
	Status  int
	Code    string
	Message string
	Hint    string
	Err     error
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	b.WriteString("remote")
	if e.Op != "" {
		b.WriteString(" " + e.Op)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " status=%d", e.Status)
	}
	if e.Code != "" {
		b.WriteString(" code=" + e.Code)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *RemoteError) Unwrap() error { return e.Err }

var (
	authCodes       = map[string]bool{"PGRST301": true, "PGRST302": true, "PGRST300": true, "28000": true, "28P01": true}
	permissionCodes = map[string]bool{"42501": true}
	authMarkers     = []string{"jwt", "not authenticated", "invalid token", "token expired"}
	policyMarkers   = []string{"row-level security", "row level security", "violates policy"}
	permMarkers     = []string{"permission denied", "insufficient privilege"}
)

// Class classifies the failure against a fixed set of codes and message markers.
func (e *RemoteError) Class() Class {
	text := strings.ToLower(e.Message + " " + e.Hint)
	switch {
	case containsAny(text, policyMarkers):
		return ClassPolicy
	case authCodes[e.Code] || e.Status == 401 || containsAny(text, authMarkers):
		return ClassAuth
	case permissionCodes[e.Code] || e.Status == 403 || containsAny(text, permMarkers):
		return ClassPermission
	case e.Status == 0 && e.Err != nil:
		return ClassTransport
	}
	return ClassOther
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// Classify returns the class of any error. Errors that are not RemoteErrors
// count as transport failures when they come from the network or a deadline.
func Classify(err error) Class {
	if err == nil {
		return ClassOther
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Class()
	}
	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, context.DeadlineExceeded) {
		return ClassTransport
	}
	return ClassOther
}

// Recoverable reports whether a failed remote write may be retried locally.
func Recoverable(err error) bool {
	if err == nil || errors.Is(err, ErrNoCredential) {
		return false
	}
	switch Classify(err) {
	case ClassAuth, ClassPolicy, ClassPermission, ClassTransport:
		return true
	}
	return false
}
