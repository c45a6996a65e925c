package dafka

import "fmt"

// ErrUnknownCommand is the panic value raised when the control channel
// receives a command the loop does not recognize. Per §7, an unknown
// control command is a programming error by the embedder, not a runtime
// condition to recover from.
type ErrUnknownCommand struct {
	Command any
}

func (e ErrUnknownCommand) Error() string {
	return fmt.Sprintf("dafka: unknown control command %#v", e.Command)
}
