package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"wrapped sentinel", fmt.Errorf("%w: user 'x'", ErrUserNotFound), KindNotFound},
		{"invalid argument", InvalidArgument("bad"), KindInvalidArgument},
		{"unauthenticated", ErrUnauthenticated, KindUnauthenticated},
		{"plain error", errors.New("io"), KindInternal},
		{"internal wrap", Internal("Error creating SaaS tool", errors.New("io")), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInternalKeepsOtherKinds(t *testing.T) {
	nf := fmt.Errorf("%w: tool 't'", ErrToolNotFound)
	if got := Internal("Error updating SaaS tool", nf); got != nf {
		t.Errorf("Internal() rewrapped a not-found error: %v", got)
	}
	if Internal("x", nil) != nil {
		t.Error("Internal(nil) should be nil")
	}
}

func TestMessageOf(t *testing.T) {
	err := Internal("Error creating SaaS tool", errors.New("deadline exceeded"))
	if got := MessageOf(err); got != "Error creating SaaS tool: deadline exceeded" {
		t.Errorf("MessageOf(internal) = %q", got)
	}
	if got := MessageOf(fmt.Errorf("%w: id", ErrNoActiveSubscription)); got != "No active subscription found" {
		t.Errorf("MessageOf(not-found) = %q", got)
	}
}
