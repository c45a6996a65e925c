package dafka

import (
	"github.com/dafka-go/consumer/pkg/beacon"
	"github.com/dafka-go/consumer/pkg/seqindex"
	"github.com/dafka-go/consumer/pkg/wire"
)

// Command is the tagged union accepted on the control channel (§6):
// SubscribeCommand or TerminateCommand. An embedder sending any other type
// is a programming error (§7) and the loop panics with ErrUnknownCommand.
type Command interface{ isCommand() }

// SubscribeCommand requests a new topic subscription. It is idempotent:
// subscribing twice has no additional effect beyond the first call.
type SubscribeCommand struct{ Topic string }

// TerminateCommand requests cooperative shutdown.
type TerminateCommand struct{}

func (SubscribeCommand) isCommand() {}
func (TerminateCommand) isCommand() {}

// run is the Event Loop & Control Plane (C5): the single goroutine that
// owns the Sequence Index, the Subscription Manager, the Gap Detector, and
// the beacon's event stream. It multiplexes the three event sources named
// in §4.5 and exits on TerminateCommand.
func (c *Client) run() {
	defer close(c.done)
	close(c.ready)
	for {
		select {
		case cmd, ok := <-c.control:
			if !ok {
				return
			}
			if c.handleCommand(cmd) {
				return
			}

		case f, ok := <-c.inbound:
			if !ok {
				return
			}
			c.gap.Handle(f)

		case ev, ok := <-c.beaconEvents:
			if !ok {
				// The beacon loop exited (or there is none); keep
				// serving control and inbound traffic rather than
				// tearing the whole consumer down over a discovery
				// hiccup.
				c.beaconEvents = nil
				continue
			}
			c.handleBeaconEvent(ev)
		}
	}
}

// handleCommand applies cmd and reports whether the loop should now exit.
func (c *Client) handleCommand(cmd Command) bool {
	switch cmd := cmd.(type) {
	case SubscribeCommand:
		if err := c.sub.Subscribe(cmd.Topic); err != nil {
			c.cfg.Logger.Log(LogLevelError, "subscribe failed", "topic", cmd.Topic, "err", err)
		}
		return false
	case TerminateCommand:
		return true
	default:
		panic(ErrUnknownCommand{Command: cmd})
	}
}

// handleBeaconEvent wires a newly-discovered peer into the subscriber
// socket. Producers need no action from the core beyond what Subscribe
// already installed (DATA/HEAD filters are per-topic, not per-producer).
// With ReannounceEarliestOnStoreConnect set under ResetEarliest, every
// store event re-announces Earliest for every subscribed topic, per §9
// open question 3: the event's own topic is not consulted, and repeat
// announcements of an already-known store re-announce again.
func (c *Client) handleBeaconEvent(ev beacon.Event) {
	if c.log != nil {
		c.log.Log(LogLevelDebug, "beacon event", "kind", ev.Kind.String(), "address", ev.Address, "topic", ev.Topic)
	}
	if ev.Kind != beacon.PeerStore || !c.cfg.ReannounceEarliestOnStoreConnect {
		return
	}
	if c.cfg.Reset != seqindex.ResetEarliest {
		return
	}
	for topic := range c.sub.topics {
		c.emit.EmitEarliest(wire.Earliest{Topic: topic, Consumer: c.address.String()})
	}
}
