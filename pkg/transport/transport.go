// Package transport provides the pub/sub socket abstraction the consumer
// is built on: a Subscriber that matches inbound frames to prefix filters
// and a Publisher that emits outbound frames. The interfaces are modeled on
// the adapter-pattern message-broker abstraction used elsewhere in this
// stack (Producer/Consumer over Message) so that a concrete backend other
// than NATS can be substituted without touching pkg/dafka.
package transport

import "context"

// Message is a single inbound delivery: the raw bytes published on subject,
// along with the subject itself so the caller can recover which kind/topic
// filter matched.
type Message struct {
	Subject string
	Data    []byte
}

// Handler processes one inbound Message. Handlers must not block for long;
// the backend calls them on whichever goroutine it dispatches on (a NATS
// library goroutine for NATSConn, the publisher's own goroutine for
// MemoryBus), not on the consumer's event loop.
type Handler func(Message)

// Subscriber installs subject filters on the inbound socket and delivers
// matching frames to a Handler.
type Subscriber interface {
	// Subscribe installs a filter for subject (a literal prefix or a
	// backend-specific wildcard built from one) and arranges for handler
	// to be called for every subsequent matching Message. Whether a repeat
	// Subscribe for an identical subject adds a second handler depends on
	// the backend: NATSConn ignores the repeat, MemoryBus adds it.
	Subscribe(subject string, handler Handler) error
	// Close releases all filters and the underlying socket.
	Close() error
}

// Publisher emits outbound frames with no subject prefix required by
// peers — they subscribe to a well-known kind prefix or to the consumer's
// own broadcast address.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

// Conn is the minimal bidirectional handle the consumer needs: a Subscriber
// for inbound frames and a Publisher for outbound ones, opened together
// against the same backend connection.
type Conn interface {
	Subscriber
	Publisher
}
