package upstream

import (
	"context"
	"fmt"
	"io"
)

// Header is a single response header.
type Header struct {
	Name  string
	Value string
}

// Response is the upstream server's response, ready to be relayed. Headers
// preserve the order in which the executor supplies them; the relay writes
// them verbatim in that order.
type Response struct {
	Proto      string
	StatusCode int
	Message    string
	Headers    []Header
	Body       io.ReadCloser
}

// Executor performs the real HTTP request against the upstream server. The
// headers are the client's raw header lines, in order.
type Executor interface {
	Do(ctx context.Context, url string, headers []string) (*Response, error)
}

// Default is the executor used when none is supplied.
var Default Executor = &Client{}

// TransportError indicates that the upstream request could not be executed
// or produced no usable response.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream request for %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
