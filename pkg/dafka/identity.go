package dafka

import "github.com/google/uuid"

// Address is a process-unique opaque consumer identity: a UUID rendered as
// a stable string, used as the DIRECT topic filter and as the reply-to
// address on outbound Fetch/Earliest frames.
type Address string

// NewAddress generates a fresh consumer identity.
func NewAddress() Address {
	return Address(uuid.NewString())
}

func (a Address) String() string { return string(a) }
