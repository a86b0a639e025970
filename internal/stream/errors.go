package stream

import (
	"errors"
	"fmt"
)

// ErrStreamClosed means the server ended the stream. The feed never ends
// on its own, so this is treated like any other transport failure.
var ErrStreamClosed = errors.New("event stream closed by server")

// TransportError is a failure opening or reading the event stream.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("event stream %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
