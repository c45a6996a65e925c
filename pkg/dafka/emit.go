package dafka

import (
	"bytes"
	"context"
	"time"

	"github.com/dafka-go/consumer/pkg/metrics"
	"github.com/dafka-go/consumer/pkg/transport"
	"github.com/dafka-go/consumer/pkg/wire"
)

// FetchEmitter serializes and publishes Fetch and Earliest frames on the
// outbound channel (C4). With a zero dedup window every fetch is
// unconditional — no deduplication across consecutive identical fetches,
// per §4.4. With a non-zero window (Config.FetchDedupWindow, 250ms by
// default) a repeat (topic, producer, from) within the window is
// suppressed, whatever its count (§9 open question 1).
//
// FetchEmitter is owned by the single consumer task; it is not safe for
// concurrent use, matching the "reusable outbound frame" design note: the
// outbound transport.Publisher is shared between the Gap Detector and the
// Subscription Manager but both call it from the same goroutine.
type FetchEmitter struct {
	pub             transport.Publisher
	consumerAddress string
	log             Logger
	metrics         *metrics.Metrics

	dedupWindow time.Duration
	recent      map[dedupKey]time.Time
}

type dedupKey struct {
	topic    string
	producer string
	from     uint64
}

// NewFetchEmitter returns an emitter that publishes on pub, identifying
// itself as consumerAddress on every Fetch/Earliest frame.
func NewFetchEmitter(pub transport.Publisher, consumerAddress string, dedupWindow time.Duration, log Logger, m *metrics.Metrics) *FetchEmitter {
	return &FetchEmitter{
		pub:             pub,
		consumerAddress: consumerAddress,
		log:             log,
		metrics:         m,
		dedupWindow:     dedupWindow,
		recent:          make(map[dedupKey]time.Time),
	}
}

// Emit publishes a Fetch frame requesting [f.From, f.From+f.Count-1] of
// topic/producer, unless an identical (topic, producer, from) was already
// emitted within the dedup window.
func (e *FetchEmitter) Emit(f wire.Fetch) {
	key := dedupKey{topic: f.Topic, producer: f.Producer, from: f.From}
	if e.suppressed(key) {
		if e.log != nil {
			e.log.Log(LogLevelDebug, "suppressing redundant fetch", "topic", f.Topic, "producer", f.Producer, "from", f.From)
		}
		return
	}

	var buf bytes.Buffer
	if err := f.Encode(&buf); err != nil {
		// Encoding a well-formed Fetch value cannot fail; treat as fatal
		// per the memory-allocation-failure policy in §7 rather than
		// silently dropping a request the caller believes was sent.
		panic(err)
	}
	if err := e.pub.Publish(context.Background(), transport.FetchSubject(), buf.Bytes()); err != nil {
		if e.log != nil {
			e.log.Log(LogLevelWarn, "outbound fetch send failed", "topic", f.Topic, "producer", f.Producer, "from", f.From, "err", err)
		}
		// Not retried inside the core: the next inbound HEAD or DATA gap
		// observation for this producer re-triggers the fetch.
		return
	}
	e.metrics.ObserveFetch(f.Topic, f.Count)
	e.remember(key)
}

// EmitEarliest publishes an Earliest frame for topic.
func (e *FetchEmitter) EmitEarliest(f wire.Earliest) {
	var buf bytes.Buffer
	if err := f.Encode(&buf); err != nil {
		panic(err)
	}
	if err := e.pub.Publish(context.Background(), transport.EarliestSubject(), buf.Bytes()); err != nil {
		if e.log != nil {
			e.log.Log(LogLevelWarn, "outbound earliest send failed", "topic", f.Topic, "err", err)
		}
		return
	}
	e.metrics.ObserveEarliest(f.Topic)
}

func (e *FetchEmitter) suppressed(key dedupKey) bool {
	if e.dedupWindow <= 0 {
		return false
	}
	last, ok := e.recent[key]
	if !ok {
		return false
	}
	return time.Since(last) < e.dedupWindow
}

func (e *FetchEmitter) remember(key dedupKey) {
	if e.dedupWindow <= 0 {
		return
	}
	now := time.Now()
	e.recent[key] = now
	// Opportunistic cleanup: bound the map to roughly the active window
	// instead of growing forever across a long-running consumer.
	if len(e.recent) > 4096 {
		for k, t := range e.recent {
			if now.Sub(t) >= e.dedupWindow {
				delete(e.recent, k)
			}
		}
	}
}
