package server

import "fmt"

// BindError indicates that the listening socket could not be bound.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("proxy: unable to bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// NotStartedError indicates an operation that requires a started server.
type NotStartedError struct {
	Op string
}

func (e *NotStartedError) Error() string {
	return fmt.Sprintf("proxy: %s requires a started server", e.Op)
}

// AlreadyStartedError indicates a call to Start on a server that is
// already running.
type AlreadyStartedError struct{}

func (e *AlreadyStartedError) Error() string {
	return "proxy: server is already started"
}
