package request

import "fmt"

// UnsupportedMethodError indicates a request that uses a method other than
// GET. The connection is dropped without a response.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unable to serve %q request, only GET is supported", e.Method)
}

// MalformedRequestError indicates a request line or header section that
// could not be parsed. The connection is dropped without a response.
type MalformedRequestError struct {
	Reason string
}

func (e *MalformedRequestError) Error() string {
	return "malformed request: " + e.Reason
}
