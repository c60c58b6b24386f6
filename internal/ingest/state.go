package ingest

import "errors"

var (
	// ErrConnection means the port could not be opened. The application keeps serving.
	ErrConnection = errors.New("serial connection failed")
	// ErrIOFault means a read failed after the port was open. The loop does not reconnect.
	ErrIOFault = errors.New("serial connection lost")
)

// State is the serial connection state seen by presentation code.
type State int32

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}
