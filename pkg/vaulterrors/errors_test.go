package vaulterrors

import (
	"errors"
	"testing"
)

func TestIsKindAndExitCode(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantKind Kind
		wantCode int
	}{
		{"validation", New(KindInvalidSecretBody, "kvstore/foo", "not a mapping"), KindInvalidSecretBody, 1},
		{"unreadable", New(KindUnreadableFile, "kvstore/foo", "permission denied"), KindUnreadableFile, 2},
		{"output", New(KindOutputFailure, "", "disk full"), KindOutputFailure, 2},
		{"unknown user", New(KindUnknownUser, "dave", "no ACL file"), KindUnknownUser, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !IsKind(tc.err, tc.wantKind) {
				t.Errorf("IsKind(%v, %v) = false, want true", tc.err, tc.wantKind)
			}
			if got := ExitCode(tc.err); got != tc.wantCode {
				t.Errorf("ExitCode() = %d, want %d", got, tc.wantCode)
			}
		})
	}
}

func TestExitCodeNil(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Errorf("ExitCode(nil) = %d, want 0", got)
	}
}

func TestExitCodeUncategorized(t *testing.T) {
	if got := ExitCode(errors.New("boom")); got != 1 {
		t.Errorf("ExitCode(uncategorized) = %d, want 1", got)
	}
}

func TestNewCollisionPreservesPaths(t *testing.T) {
	err := NewCollision("a-b", []string{"A/B", "A-B"})

	if !IsKind(err, KindSecretNameCollision) {
		t.Fatalf("expected KindSecretNameCollision, got %v", err)
	}

	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *Error in chain")
	}
	if ve.Path != "a-b" {
		t.Errorf("Path = %q, want %q", ve.Path, "a-b")
	}
}
