package auth

import "errors"

// Kind classifies a verification failure.
type Kind int

const (
	KindInvalid Kind = iota + 1
	KindExpired
	KindUnknown
)

var (
	ErrExpired = errors.New("token is expired")
	ErrInvalid = errors.New("invalid token")
	ErrUnknown = errors.New("could not validate credentials")
)

// Error is returned by Verifier.Verify. Detail is safe to show to clients;
// Err carries the underlying cause and is only meant for server-side logs.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindExpired:
		return ErrExpired.Error()
	case KindInvalid:
		return ErrInvalid.Error() + ": " + e.Reason
	default:
		if e.Err != nil {
			return ErrUnknown.Error() + ": " + e.Err.Error()
		}
		return ErrUnknown.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels so callers can use errors.Is(err, ErrExpired).
func (e *Error) Is(target error) bool {
	switch target {
	case ErrExpired:
		return e.Kind == KindExpired
	case ErrInvalid:
		return e.Kind == KindInvalid
	case ErrUnknown:
		return e.Kind == KindUnknown
	}
	return false
}

// Detail returns the client-facing message for the failure.
func (e *Error) Detail() string {
	switch e.Kind {
	case KindExpired:
		return "Token is expired"
	case KindInvalid:
		return "Invalid token: " + e.Reason
	default:
		return "Could not validate credentials"
	}
}

// DetailFor maps any error to a client-facing message without leaking causes.
func DetailFor(err error) string {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Detail()
	}
	return "Could not validate credentials"
}

func expired(cause error) *Error {
	return &Error{Kind: KindExpired, Err: cause}
}

func invalid(cause error) *Error {
	return &Error{Kind: KindInvalid, Reason: cause.Error(), Err: cause}
}

func unknown(cause error) *Error {
	return &Error{Kind: KindUnknown, Err: cause}
}
