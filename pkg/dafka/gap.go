package dafka

import (
	"math"

	"github.com/dafka-go/consumer/pkg/metrics"
	"github.com/dafka-go/consumer/pkg/seqindex"
	"github.com/dafka-go/consumer/pkg/wire"
)

// Delivery is a single payload handed to the application: the delivered
// record's topic, the producer that sent it, and its payload bytes.
type Delivery struct {
	Topic    string
	Producer string
	Payload  []byte
}

// GapDetector is the consumer's central per-frame algorithm (C3): on each
// inbound frame it consults a seqindex.Index to decide whether to deliver,
// whether to fetch, and how the index moves.
//
// GapDetector is owned by the single consumer task; Handle is never called
// concurrently, so it needs no locking of its own.
type GapDetector struct {
	index    *seqindex.Index
	reset    seqindex.ResetPolicy
	emit     *FetchEmitter
	consumer string
	deliver  func(Delivery)
	metrics  *metrics.Metrics
	log      Logger
}

// NewGapDetector builds a detector over idx, emitting fetches through emit
// tagged with consumerAddress as the reply-to, and forwarding accepted
// payloads to deliver.
func NewGapDetector(idx *seqindex.Index, reset seqindex.ResetPolicy, emit *FetchEmitter, consumerAddress string, deliver func(Delivery), log Logger, m *metrics.Metrics) *GapDetector {
	return &GapDetector{
		index:    idx,
		reset:    reset,
		emit:     emit,
		consumer: consumerAddress,
		deliver:  deliver,
		log:      log,
		metrics:  m,
	}
}

// Handle processes one freshly-received inbound frame per §4.3.
func (g *GapDetector) Handle(f wire.Frame) {
	key := seqindex.Key{Topic: f.Topic, Producer: f.Producer}
	s := f.Sequence

	prev, known := g.index.Lookup(key)

	// Step 1 — lookup or bootstrap.
	if !known {
		switch g.reset {
		case seqindex.ResetLatest:
			if f.Kind == wire.KindHead {
				// Skip history up to the announced head.
				prev = s
				g.index.Insert(key, prev)
				known = true
			} else {
				// Accept the current record as the first one.
				prev = s - 1 // wraps to MaxUint64 when s == 0, by design
				if s != 0 {
					g.index.Insert(key, prev)
					known = true
				}
				// When s == 0, prev wrapped to MaxUint64, which cannot
				// be stored as a real index entry (Update below would
				// see it as a regression). Leave the key absent so
				// Step 3 performs its first write the same way the
				// ResetEarliest bootstrap already does.
			}
		case seqindex.ResetEarliest:
			// Leave the index untouched — the record is not bootstrapped.
			// Using MaxUint64 as the "nothing known yet" sentinel makes
			// prev+1 wrap to exactly 0 below, so the fetch naturally
			// starts at sequence 0: the edge case in §4.3 ("sequence 0
			// ... is the first sequence fetched") falls out of the
			// arithmetic rather than needing a branch of its own.
			prev = math.MaxUint64
		}
	}

	// Step 2 — fetch decision.
	var needFetch bool
	switch f.Kind {
	case wire.KindData, wire.KindDirect:
		needFetch = !known || s > prev+1
	case wire.KindHead:
		needFetch = !known || s > prev
	}
	if needFetch {
		from := prev + 1
		count := s - prev
		if g.log != nil {
			g.log.Log(LogLevelDebug, "fetching missed messages", "topic", f.Topic, "producer", f.Producer, "kind", f.Kind.String(), "from", from, "count", count)
		}
		g.emit.Emit(wire.Fetch{
			Topic:    f.Topic,
			Producer: f.Producer,
			From:     from,
			Count:    count,
			Consumer: g.consumer,
		})
	}

	// Step 3 — delivery decision. Only DATA/DIRECT are ever delivered;
	// HEAD carries no payload and stops here.
	if f.Kind != wire.KindData && f.Kind != wire.KindDirect {
		return
	}
	if s != prev+1 {
		// Either a duplicate/stale reorder (s <= prev) or a frame ahead
		// of a gap we just requested (s > prev+1, now covered by the
		// fetch above and expected to be re-delivered via DIRECT).
		g.metrics.ObserveDroppedDuplicate(f.Topic)
		return
	}

	if known {
		g.index.Update(key, s)
	} else {
		// First-ever delivery for a key Step 1 left out of the index
		// (ResetEarliest, or ResetLatest with s == 0), so this is its
		// first write, not an advance of an existing one.
		g.index.Insert(key, s)
	}
	g.metrics.ObserveDelivered(f.Topic)
	g.deliver(Delivery{Topic: f.Topic, Producer: f.Producer, Payload: f.Payload})
}
