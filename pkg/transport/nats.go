package transport

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go"
)

// These subject prefixes namespace the flat kind-byte filter scheme from pkg/wire
// into NATS subject tokens, since NATS routes on dot-separated subject
// strings rather than arbitrary byte prefixes.
const (
	subjectData     = "dafka.data."
	subjectHead     = "dafka.head."
	subjectDirect   = "dafka.direct."
	subjectFetch    = "dafka.fetch"
	subjectEarliest = "dafka.earliest"
)

// DataSubject, HeadSubject, and DirectSubject build the exact NATS subject
// for a topic or address filter; FetchSubject and EarliestSubject are the
// fixed well-known subjects outbound request frames publish to.
func DataSubject(topic string) string     { return subjectData + topic }
func HeadSubject(topic string) string     { return subjectHead + topic }
func DirectSubject(address string) string { return subjectDirect + address }
func FetchSubject() string                { return subjectFetch }
func EarliestSubject() string             { return subjectEarliest }

// NATSConn is a Conn backed by a single *nats.Conn. Subscriptions are
// tracked so Close can drain and unsubscribe all of them deterministically.
type NATSConn struct {
	nc *nats.Conn

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// DialNATS connects to a NATS server at url and returns a Conn wrapping it.
func DialNATS(url string, opts ...nats.Option) (*NATSConn, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &NATSConn{nc: nc, subs: make(map[string]*nats.Subscription)}, nil
}

// Subscribe installs a NATS subscription for subject. Calling Subscribe
// again with the same subject is a no-op: the existing subscription is left
// in place, matching the idempotent-subscribe requirement of the
// Subscription Manager built on top of this Conn.
func (c *NATSConn) Subscribe(subject string, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[subject]; ok {
		return nil
	}
	sub, err := c.nc.Subscribe(subject, func(m *nats.Msg) {
		handler(Message{Subject: m.Subject, Data: m.Data})
	})
	if err != nil {
		return err
	}
	c.subs[subject] = sub
	return nil
}

// Publish sends data on subject. ctx is accepted for interface symmetry
// with other transports that support per-call deadlines; core NATS publish
// is fire-and-forget and does not block on ctx.
func (c *NATSConn) Publish(ctx context.Context, subject string, data []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return c.nc.Publish(subject, data)
}

// Close unsubscribes everything and closes the underlying connection.
func (c *NATSConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for subject, sub := range c.subs {
		_ = sub.Unsubscribe()
		delete(c.subs, subject)
	}
	c.nc.Close()
	return nil
}
