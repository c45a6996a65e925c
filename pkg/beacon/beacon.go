// Package beacon is the peer-discovery collaborator: it broadcasts this
// consumer's presence on a UDP segment and listens for producer and store
// announcements, handing each newly-observed peer to the consumer core as
// an Event. The wire format is authenticated with a keyed blake2b-256 MAC
// (golang.org/x/crypto/blake2b) so a stray broadcaster on the segment can't
// spoof peers; the two background loops are coordinated with
// golang.org/x/sync/errgroup so either one failing tears down the other.
package beacon

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config holds the beacon/* configuration options forwarded unchanged from
// the embedder per spec §6.
type Config struct {
	// ListenAddr is the local UDP address to receive announcements on,
	// e.g. ":9999".
	ListenAddr string
	// BroadcastAddr is the UDP address this consumer's own announcements
	// are sent to, e.g. "255.255.255.255:9999".
	BroadcastAddr string
	// Interval is how often this consumer re-announces itself.
	Interval time.Duration
	// Secret authenticates announcements on the segment; peers sharing
	// the same secret can discover each other.
	Secret []byte
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	return c
}

// Event reports a newly-observed peer (or a re-announcement of a known
// one — the consumer core's subscription logic is idempotent, so the
// beacon does not need to deduplicate).
type Event struct {
	Kind    PeerKind
	Address string
	Topic   string
}

// Beacon runs the announce and listen loops for one consumer process.
type Beacon struct {
	cfg  Config
	conn *net.UDPConn

	events chan Event
	group  *errgroup.Group
	cancel context.CancelFunc
}

// New returns an unstarted Beacon for cfg.
func New(cfg Config) *Beacon {
	return &Beacon{cfg: cfg.withDefaults()}
}

// Start binds the listen socket and launches the announce and listen
// loops, tagged with selfAddress as this consumer's identity. It returns
// once the socket is bound — that bind is the beacon's readiness signal,
// per §4.5's "wait for its ready signal before proceeding". The returned
// channel is closed by Close; a loop exiting on its own does not close it.
func (b *Beacon) Start(ctx context.Context, selfAddress string) (<-chan Event, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", b.cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("beacon: resolve listen addr: %w", err)
	}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("beacon: listen: %w", err)
	}
	broadcastAddr, err := net.ResolveUDPAddr("udp4", b.cfg.BroadcastAddr)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("beacon: resolve broadcast addr: %w", err)
	}

	b.conn = conn
	b.events = make(chan Event, 32)

	loopCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	g, loopCtx := errgroup.WithContext(loopCtx)
	b.group = g

	self := announcement{Kind: PeerConsumer, Address: selfAddress}

	g.Go(func() error { return b.announceLoop(loopCtx, conn, broadcastAddr, self) })
	g.Go(func() error { return b.listenLoop(loopCtx, conn, selfAddress) })

	return b.events, nil
}

func (b *Beacon) announceLoop(ctx context.Context, conn *net.UDPConn, dst *net.UDPAddr, self announcement) error {
	payload, err := encode(self, b.cfg.Secret)
	if err != nil {
		return err
	}
	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()
	for {
		// A single failed broadcast is not fatal to the loop; the next
		// tick retries.
		conn.WriteToUDP(payload, dst)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (b *Beacon) listenLoop(ctx context.Context, conn *net.UDPConn, selfAddress string) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 2048)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		a, err := decode(buf[:n], b.cfg.Secret)
		if err != nil {
			// Transient decode error: drop and keep listening, matching
			// the core's inbound-frame decode policy.
			continue
		}
		if a.Kind == PeerConsumer || a.Address == selfAddress {
			continue
		}
		select {
		case b.events <- Event{Kind: a.Kind, Address: a.Address, Topic: a.Topic}:
		case <-ctx.Done():
			return nil
		}
	}
}

// Close stops both loops and releases the socket, blocking until they
// exit. Calling it again is safe.
func (b *Beacon) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	var err error
	if b.group != nil {
		err = b.group.Wait()
	}
	if b.events != nil {
		close(b.events)
		b.events = nil
	}
	return err
}
