package sizpay

import (
	"errors"
	"fmt"
)

// ProtocolError is a transport-level failure talking SOAP to the gateway:
// a non-200 status or an envelope that does not parse. It is never treated
// as a payment result.
type ProtocolError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("sizpay %s returned status %d: %s", e.Operation, e.StatusCode, e.Body)
}

func IsProtocolError(err error) (*ProtocolError, bool) {
	var pe *ProtocolError
	ok := errors.As(err, &pe)
	return pe, ok
}
