package auth

import (
	"errors"
	"fmt"
)

// ErrAuthorizationIntegrity is returned when the state echoed back to the
// loopback listener does not match the one we generated. It can mean a
// cross-site request forgery attempt and must not be retried automatically.
var ErrAuthorizationIntegrity = errors.New("authorization state mismatch: possible request forgery")

// ErrCorruptCredential is returned when the credential file exists but
// cannot be decoded.
var ErrCorruptCredential = errors.New("credential file is corrupt")

// TransportError wraps network or HTTP failures talking to the
// authorization server.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("authorization %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
