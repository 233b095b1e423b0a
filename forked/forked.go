package forked

// Params holds the query parameters of a proxied request. When a parameter
// name appears more than once in the query string, only the first value is
// retained.
type Params map[string]string

// Get returns the value of the named parameter, or an empty string if the
// parameter is absent.
func (p Params) Get(name string) string {
	return p[name]
}

// Stream is a byte sink that receives a copy of every response chunk relayed
// to a client. A stream is owned by a single relay for the duration of one
// response.
//
// Abort signals that the capture is incomplete or corrupt and must not be
// kept. It may be called more than once, and Close remains safe to call
// after Abort.
type Stream interface {
	Write(buffer []byte) (int, error)
	Flush() error
	Abort()
	Close() error
}

// Factory creates a Stream for a single proxied request, based on the query
// parameters of the request's target URL.
type Factory interface {
	NewStream(params Params) (Stream, error)
}
