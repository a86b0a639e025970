package detect

import "fmt"

// MalformedPayloadError reports a "data: " line that could not be decoded.
// It applies to that line only; the session keeps going.
type MalformedPayloadError struct {
	Line string
	Err  error
}

func (e *MalformedPayloadError) Error() string {
	line := e.Line
	if len(line) > 120 {
		line = line[:120] + "..."
	}
	return fmt.Sprintf("malformed event payload %q: %v", line, e.Err)
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}
