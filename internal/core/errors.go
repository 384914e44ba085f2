package core

import (
	"errors"
	"fmt"
)

// Kind is the error category reported to RPC callers.
type Kind string

const (
	KindInvalidArgument Kind = "invalid-argument"
	KindNotFound        Kind = "not-found"
	KindUnauthenticated Kind = "unauthenticated"
	KindInternal        Kind = "internal"
)

// Error is a service error carrying its Kind and a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinel errors returned by the services. Wrap them with fmt.Errorf("%w: ...").
var (
	ErrUnauthenticated      = &Error{Kind: KindUnauthenticated, Message: "User must be authenticated"}
	ErrUserNotFound         = &Error{Kind: KindNotFound, Message: "User not found"}
	ErrToolNotFound         = &Error{Kind: KindNotFound, Message: "SaaS tool not found"}
	ErrNoActiveSubscription = &Error{Kind: KindNotFound, Message: "No active subscription found"}
	ErrSubscriptionNotFound = &Error{Kind: KindNotFound, Message: "Subscription not found"}
	ErrInvalidRequest       = &Error{Kind: KindInvalidArgument, Message: "Invalid request data"}
	ErrBillingUnavailable   = &Error{Kind: KindInternal, Message: "Billing provider is not configured"}
	ErrWebhookSignature     = &Error{Kind: KindInvalidArgument, Message: "Invalid webhook signature"}
)

// InvalidArgument builds an invalid-argument error with the given message.
func InvalidArgument(msg string) error {
	return &Error{Kind: KindInvalidArgument, Message: msg}
}

// Internal re-signals err as internal under "<action>: <cause>" unless it already
// carries one of the other kinds, in which case it is returned unchanged.
func Internal(action string, err error) error {
	if err == nil {
		return nil
	}
	if k := KindOf(err); k != KindInternal {
		return err
	}
	return &Error{Kind: KindInternal, Message: action, Err: err}
}

// KindOf returns the Kind attached to err, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the message to show a caller. Internal errors keep their cause,
// matching the "<action>: <cause>" format.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == KindInternal {
			return e.Error()
		}
		return e.Message
	}
	return fmt.Sprintf("Internal error: %v", err)
}
