package hub

import "strconv"

var (
	// ErrNotConnected indicates the hub could not be reached during the session handshake.
	ErrNotConnected = &ConnectivityError{}
	// ErrCommand indicates the hub rejected (or never received) a zone command.
	ErrCommand = &CommandError{}
)

type ConnectivityError struct {
	err error
}

func (e *ConnectivityError) Error() string {
	reason := "unknown reason"
	if e.err != nil {
		reason = e.err.Error()
	}
	return "hub unreachable: " + reason
}

func (e *ConnectivityError) Is(err error) bool {
	return err == ErrNotConnected
}

func (e *ConnectivityError) Unwrap() error {
	return e.err
}

type CommandError struct {
	StatusCode int
	err        error
}

func (e *CommandError) Error() string {
	reason := "unknown reason"
	if e.err != nil {
		reason = e.err.Error()
	} else if e.StatusCode != 0 {
		reason = strconv.Itoa(e.StatusCode)
	}
	return "command rejected: " + reason
}

func (e *CommandError) Is(err error) bool {
	return err == ErrCommand
}

func (e *CommandError) Unwrap() error {
	return e.err
}
