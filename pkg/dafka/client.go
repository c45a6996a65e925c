package dafka

import (
	"context"
	"fmt"

	"github.com/dafka-go/consumer/pkg/beacon"
	"github.com/dafka-go/consumer/pkg/metrics"
	"github.com/dafka-go/consumer/pkg/seqindex"
	"github.com/dafka-go/consumer/pkg/transport"
	"github.com/dafka-go/consumer/pkg/wire"
)

// Client is the consumer core: the single long-running task described in
// §2, wiring the Sequence Index, Subscription Manager, Gap Detector, Fetch
// Emitter, and beacon collaborator together behind a control channel and a
// delivery channel. It is constructed once per process and run until
// Terminate (or Close) is called.
type Client struct {
	cfg     Config
	address Address

	conn    transport.Conn
	sub     *SubscriptionManager
	emit    *FetchEmitter
	gap     *GapDetector
	index   *seqindex.Index
	metrics *metrics.Metrics
	log     Logger

	beacon       *beacon.Beacon
	beaconEvents <-chan beacon.Event

	control  chan Command
	inbound  chan wire.Frame
	delivery chan Delivery
	ready    chan struct{}
	done     chan struct{}
}

// New constructs a Client over conn, starts its beacon collaborator with
// beaconCfg, and runs its event loop in a background goroutine. It blocks
// until the loop signals readiness per §4.5, then returns.
//
// m may be nil; every Metrics method is a safe no-op on a nil receiver.
func New(conn transport.Conn, beaconCfg beacon.Config, m *metrics.Metrics, opts ...Option) (*Client, error) {
	cfg := NewConfig(opts...)
	if !cfg.Verbose {
		// consumer/verbose gates LogLevelDebug output regardless of which
		// backend the embedder plugged in via WithLogger.
		cfg.Logger = verbosityFilter{threshold: LogLevelInfo, inner: cfg.Logger}
	}
	address := NewAddress()
	index := seqindex.New()
	emit := NewFetchEmitter(conn, address.String(), cfg.FetchDedupWindow, cfg.Logger, m)
	codec, err := wire.NewCodec(cfg.Compression)
	if err != nil {
		return nil, fmt.Errorf("dafka: %w", err)
	}

	c := &Client{
		cfg:      cfg,
		address:  address,
		conn:     conn,
		emit:     emit,
		index:    index,
		metrics:  m,
		log:      cfg.Logger,
		control:  make(chan Command),
		inbound:  make(chan wire.Frame, 256),
		delivery: make(chan Delivery, 256),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}

	c.gap = NewGapDetector(index, cfg.Reset, emit, address.String(), c.deliverOrDrop, cfg.Logger, m)
	c.sub = NewSubscriptionManager(conn, c.acceptOrDrop, cfg.Reset, emit, cfg.Logger, codec)

	if err := c.sub.SubscribeDirect(address); err != nil {
		return nil, fmt.Errorf("dafka: install direct filter: %w", err)
	}

	b := beacon.New(beaconCfg)
	events, err := b.Start(context.Background(), address.String())
	if err != nil {
		return nil, fmt.Errorf("dafka: start beacon: %w", err)
	}
	c.beacon = b
	c.beaconEvents = events

	go c.run()
	<-c.ready
	return c, nil
}

// deliverOrDrop is the Gap Detector's application-delivery callback. It
// runs on the loop goroutine, so c.done cannot close while it waits: once
// the 256-record delivery buffer is full it blocks until the application
// receives from Deliveries, and the loop serves no other event (including
// the TERMINATE that Close sends) in the meantime.
func (c *Client) deliverOrDrop(d Delivery) {
	select {
	case c.delivery <- d:
	case <-c.done:
	}
}

// acceptOrDrop is the Subscription Manager's inbound-frame callback,
// called from whatever goroutine the transport dispatches on (a NATS
// library goroutine, or the caller's own for transport.MemoryBus). It
// funnels every inbound frame onto a single channel so the Gap Detector —
// and everything it touches — is only ever driven from the loop goroutine.
func (c *Client) acceptOrDrop(f wire.Frame) {
	select {
	case c.inbound <- f:
	case <-c.done:
	}
}

// Address returns this consumer's process-unique identity.
func (c *Client) Address() Address { return c.address }

// Deliveries returns the channel of accepted (topic, producer, payload)
// records, per §6's delivery channel.
func (c *Client) Deliveries() <-chan Delivery { return c.delivery }

// Subscribe sends a SUBSCRIBE command for topic. It does not block on the
// loop actually installing the filters; err is non-nil only if the event
// loop has already exited (after Terminate or Close).
func (c *Client) Subscribe(topic string) error {
	return c.send(SubscribeCommand{Topic: topic})
}

// Terminate sends a TERMINATE command, requesting cooperative shutdown. It
// does not wait for the loop to exit; call Close for that.
func (c *Client) Terminate() error {
	return c.send(TerminateCommand{})
}

func (c *Client) send(cmd Command) error {
	select {
	case c.control <- cmd:
		return nil
	case <-c.done:
		return fmt.Errorf("dafka: client already closed")
	}
}

// Close requests termination, waits for the loop to exit, and tears down
// the beacon collaborator and the transport connection. The teardown
// happens here, not in the loop: Terminate on its own stops the loop but
// leaves the beacon and the connection open until Close is called.
// Calling Close a second time is a no-op.
func (c *Client) Close() error {
	select {
	case c.control <- TerminateCommand{}:
	case <-c.done:
	}
	<-c.done

	var err error
	if berr := c.beacon.Close(); berr != nil {
		err = berr
	}
	if cerr := c.conn.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
