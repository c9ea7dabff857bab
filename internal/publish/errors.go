// Package publish sends scheduled posts to their platforms. Failures are
// classified so the scheduler can decide between retrying, failing the post,
// or deactivating the credential.
package publish

import "fmt"

// Class of a publish failure. The class decides the post's fate.
type Class int

const (
	// ClassContentInvalid: the content violates a platform constraint. The
	// publish call is never attempted; the post fails terminally.
	ClassContentInvalid Class = iota

	// ClassCredentialInvalid: the platform rejected the token. The post fails
	// terminally and the credential gets deactivated.
	ClassCredentialInvalid

	// ClassTransient: timeout, network error, 429 or 5xx. The post stays
	// scheduled and is retried on a later tick, up to the attempt budget.
	ClassTransient

	// ClassPermanent: any other platform rejection (4xx). Terminal.
	ClassPermanent
)

func (c Class) String() string {
	switch c {
	case ClassContentInvalid:
		return "content_invalid"
	case ClassCredentialInvalid:
		return "credential_invalid"
	case ClassTransient:
		return "transient"
	default:
		return "permanent"
	}
}

// Error is a classified publish failure.
type Error struct {
	Class  Class
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("publish: %s: %s: %v", e.Class, e.Reason, e.Err)
	}
	return fmt.Sprintf("publish: %s: %s", e.Class, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func contentErr(format string, args ...any) *Error {
	return &Error{Class: ClassContentInvalid, Reason: fmt.Sprintf(format, args...)}
}
