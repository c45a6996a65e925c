package dafka

import (
	"fmt"

	"github.com/dafka-go/consumer/pkg/seqindex"
	"github.com/dafka-go/consumer/pkg/transport"
	"github.com/dafka-go/consumer/pkg/wire"
)

// SubscriptionManager maintains the set of subscribed topics on the
// inbound socket (C2 of the consumer design). It installs filters and, for
// ResetEarliest, requests full history through the Fetch Emitter.
type SubscriptionManager struct {
	sub    transport.Subscriber
	onData func(wire.Frame)
	reset  seqindex.ResetPolicy
	emit   *FetchEmitter
	log    Logger
	codec  wire.Codec

	topics map[string]struct{}
}

// NewSubscriptionManager returns a manager that installs filters on sub and
// routes every inbound DATA/DIRECT/HEAD frame to onData. DATA/DIRECT
// payloads are decompressed with codec before onData sees them; codec may
// be nil, which is treated the same as wire.CompressionNone.
func NewSubscriptionManager(sub transport.Subscriber, onData func(wire.Frame), reset seqindex.ResetPolicy, emit *FetchEmitter, log Logger, codec wire.Codec) *SubscriptionManager {
	return &SubscriptionManager{
		sub:    sub,
		onData: onData,
		reset:  reset,
		emit:   emit,
		log:    log,
		codec:  codec,
		topics: make(map[string]struct{}),
	}
}

// Subscribe installs DATA and HEAD filters for topic and, under
// ResetEarliest, emits an Earliest frame requesting full history. It is a
// no-op if topic is already subscribed (idempotent per §4.2 / §8 property
// 5). Errors from the underlying socket are returned to the caller.
func (s *SubscriptionManager) Subscribe(topic string) error {
	if _, ok := s.topics[topic]; ok {
		return nil
	}
	if s.log != nil {
		s.log.Log(LogLevelDebug, "subscribe to topic", "topic", topic)
	}

	if err := s.sub.Subscribe(transport.DataSubject(topic), func(m transport.Message) {
		s.dispatch(wire.KindData, m)
	}); err != nil {
		return fmt.Errorf("dafka: subscribe DATA for topic %q: %w", topic, err)
	}
	if err := s.sub.Subscribe(transport.HeadSubject(topic), func(m transport.Message) {
		s.dispatch(wire.KindHead, m)
	}); err != nil {
		return fmt.Errorf("dafka: subscribe HEAD for topic %q: %w", topic, err)
	}

	s.topics[topic] = struct{}{}

	if s.reset == seqindex.ResetEarliest {
		if s.log != nil {
			s.log.Log(LogLevelDebug, "send EARLIEST for topic", "topic", topic)
		}
		s.emit.EmitEarliest(wire.Earliest{Topic: topic, Consumer: s.emit.consumerAddress})
	}
	return nil
}

// SubscribeDirect installs the unconditional, startup-time DIRECT filter
// for the consumer's own address.
func (s *SubscriptionManager) SubscribeDirect(address Address) error {
	return s.sub.Subscribe(transport.DirectSubject(string(address)), func(m transport.Message) {
		s.dispatch(wire.KindDirect, m)
	})
}

// Subscribed reports whether topic has already been subscribed.
func (s *SubscriptionManager) Subscribed(topic string) bool {
	_, ok := s.topics[topic]
	return ok
}

func (s *SubscriptionManager) dispatch(kind wire.Kind, m transport.Message) {
	frame, err := wire.DecodeFrame(byteReader(m.Data))
	if err != nil {
		if s.log != nil {
			s.log.Log(LogLevelDebug, "dropping undecodable frame", "subject", m.Subject, "err", err)
		}
		return
	}
	if frame.Kind != kind {
		// Transient decode mismatch: the subject told us what to expect,
		// the encoded kind byte disagreed. Treat like any other decode
		// error and drop it.
		if s.log != nil {
			s.log.Log(LogLevelDebug, "dropping frame with mismatched kind", "subject", m.Subject, "want", kind, "got", frame.Kind)
		}
		return
	}

	if s.codec != nil && (frame.Kind == wire.KindData || frame.Kind == wire.KindDirect) {
		payload, err := s.codec.Decompress(frame.Payload)
		if err != nil {
			// Same policy as any other transient decode error: drop and
			// keep going.
			if s.log != nil {
				s.log.Log(LogLevelDebug, "dropping frame with undecompressable payload", "subject", m.Subject, "err", err)
			}
			return
		}
		frame.Payload = payload
	}
	s.onData(frame)
}
