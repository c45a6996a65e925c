package dafka

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dafka-go/consumer/pkg/metrics"
	"github.com/dafka-go/consumer/pkg/seqindex"
	"github.com/dafka-go/consumer/pkg/transport"
	"github.com/dafka-go/consumer/pkg/wire"
)

func newTestDetector(t *testing.T, reset seqindex.ResetPolicy) (*GapDetector, *transport.MemoryBus, *[]Delivery) {
	t.Helper()
	bus := transport.NewMemoryBus()
	emit := NewFetchEmitter(bus, "consumer-1", 0, NopLogger{}, metrics.New())
	var delivered []Delivery
	gd := NewGapDetector(seqindex.New(), reset, emit, "consumer-1", func(d Delivery) {
		delivered = append(delivered, d)
	}, NopLogger{}, metrics.New())
	return gd, bus, &delivered
}

func recordFetches(t *testing.T, bus *transport.MemoryBus) *[]wire.Fetch {
	t.Helper()
	var got []wire.Fetch
	err := bus.Subscribe(transport.FetchSubject(), func(m transport.Message) {
		f, err := wire.DecodeFetch(byteReader(m.Data))
		require.NoError(t, err)
		got = append(got, f)
	})
	require.NoError(t, err)
	return &got
}

// S1: reset=earliest, a brand-new producer's DIRECT replay starting exactly
// at sequence 0 is delivered in full. The very first frame for an unknown
// (topic, producer) pair still triggers one fetch regardless of sequence —
// the index has nothing recorded yet to prove there's no gap — but once
// bootstrapped by that first delivery, the rest of the contiguous replay
// needs no further fetches.
func TestGapDetector_EarliestContiguousFromZero(t *testing.T) {
	gd, bus, delivered := newTestDetector(t, seqindex.ResetEarliest)
	fetches := recordFetches(t, bus)

	for _, s := range []uint64{0, 1, 2} {
		gd.Handle(wire.Frame{Kind: wire.KindDirect, Topic: "t", Producer: "p", Sequence: s, Payload: []byte("m")})
	}

	require.Len(t, *delivered, 3)
	require.Len(t, *fetches, 1, "only the first, unknown-producer frame triggers a fetch")
	require.Equal(t, uint64(0), (*fetches)[0].From)
	require.Equal(t, uint64(1), (*fetches)[0].Count)
}

// S1 variant: reset=earliest but the first observed frame for a new producer
// is NOT sequence 0 — a fetch covering [0, s] must be requested, and the
// frame itself withheld until the backfill arrives in order.
func TestGapDetector_EarliestFirstFrameAheadOfZero(t *testing.T) {
	gd, bus, delivered := newTestDetector(t, seqindex.ResetEarliest)
	fetches := recordFetches(t, bus)

	gd.Handle(wire.Frame{Kind: wire.KindData, Topic: "t", Producer: "p", Sequence: 2, Payload: []byte("m2")})

	require.Empty(t, *delivered)
	require.Len(t, *fetches, 1)
	require.Equal(t, uint64(0), (*fetches)[0].From)
	require.Equal(t, uint64(3), (*fetches)[0].Count) // covers 0,1,2

	// The backfill now streams in as DIRECT frames in order; once it
	// catches up to sequence 2 the originally-withheld message is not
	// redelivered (it was never accepted), but the replay itself is.
	gd.Handle(wire.Frame{Kind: wire.KindDirect, Topic: "t", Producer: "p", Sequence: 0, Payload: []byte("m0")})
	gd.Handle(wire.Frame{Kind: wire.KindDirect, Topic: "t", Producer: "p", Sequence: 1, Payload: []byte("m1")})
	gd.Handle(wire.Frame{Kind: wire.KindDirect, Topic: "t", Producer: "p", Sequence: 2, Payload: []byte("m2-direct")})

	require.Len(t, *delivered, 3)
	require.Equal(t, []byte("m0"), (*delivered)[0].Payload)
	require.Equal(t, []byte("m1"), (*delivered)[1].Payload)
	require.Equal(t, []byte("m2-direct"), (*delivered)[2].Payload)
}

// S2: reset=latest bootstraps on the first observed DATA frame and delivers
// it directly, with no fetch.
func TestGapDetector_LatestBootstrapDelivers(t *testing.T) {
	gd, bus, delivered := newTestDetector(t, seqindex.ResetLatest)
	fetches := recordFetches(t, bus)

	gd.Handle(wire.Frame{Kind: wire.KindData, Topic: "t", Producer: "p", Sequence: 7, Payload: []byte("hello")})

	require.Len(t, *delivered, 1)
	require.Equal(t, []byte("hello"), (*delivered)[0].Payload)
	require.Empty(t, *fetches)
}

// S2 edge case: reset=latest and the very first observed frame for a
// producer is sequence 0. The naive prev = s-1 bootstrap wraps to
// MaxUint64, which must not be written into the index as a real entry (it
// would make the next delivery look like a regression). Sequence 0 is a
// valid first sequence and must be delivered without panicking.
func TestGapDetector_LatestBootstrapAtSequenceZero(t *testing.T) {
	gd, bus, delivered := newTestDetector(t, seqindex.ResetLatest)
	fetches := recordFetches(t, bus)

	require.NotPanics(t, func() {
		gd.Handle(wire.Frame{Kind: wire.KindData, Topic: "t", Producer: "p", Sequence: 0, Payload: []byte("m0")})
	})

	require.Len(t, *delivered, 1)
	require.Equal(t, []byte("m0"), (*delivered)[0].Payload)
	require.Len(t, *fetches, 1, "the unknown-producer bootstrap still triggers one redundant fetch")
	require.Equal(t, uint64(0), (*fetches)[0].From)
	require.Equal(t, uint64(1), (*fetches)[0].Count)

	// The index must have actually advanced to 0, not left the producer
	// unknown forever: the next contiguous frame delivers cleanly too.
	require.NotPanics(t, func() {
		gd.Handle(wire.Frame{Kind: wire.KindData, Topic: "t", Producer: "p", Sequence: 1, Payload: []byte("m1")})
	})
	require.Len(t, *delivered, 2)
	require.Equal(t, []byte("m1"), (*delivered)[1].Payload)
}

// S3: once bootstrapped, a HEAD announcement ahead of the last delivered
// sequence triggers a targeted fetch for exactly the missing range.
func TestGapDetector_HeadAnnouncesGap(t *testing.T) {
	gd, bus, delivered := newTestDetector(t, seqindex.ResetLatest)
	fetches := recordFetches(t, bus)

	gd.Handle(wire.Frame{Kind: wire.KindData, Topic: "t", Producer: "p", Sequence: 5, Payload: []byte("m5")})
	require.Len(t, *delivered, 1)

	gd.Handle(wire.Frame{Kind: wire.KindHead, Topic: "t", Producer: "p", Sequence: 9})

	require.Len(t, *fetches, 1)
	require.Equal(t, uint64(6), (*fetches)[0].From)
	require.Equal(t, uint64(4), (*fetches)[0].Count) // 6,7,8,9

	// The backfill arrives as DIRECT frames and each is delivered in turn.
	for _, s := range []uint64{6, 7, 8, 9} {
		gd.Handle(wire.Frame{Kind: wire.KindDirect, Topic: "t", Producer: "p", Sequence: s, Payload: []byte("m")})
	}
	require.Len(t, *delivered, 5)
}

// A DATA/DIRECT frame at or below the last delivered sequence is a
// duplicate or stale reorder and is silently dropped, never redelivered.
func TestGapDetector_DuplicateDropped(t *testing.T) {
	gd, _, delivered := newTestDetector(t, seqindex.ResetLatest)

	gd.Handle(wire.Frame{Kind: wire.KindData, Topic: "t", Producer: "p", Sequence: 3, Payload: []byte("first")})
	gd.Handle(wire.Frame{Kind: wire.KindDirect, Topic: "t", Producer: "p", Sequence: 3, Payload: []byte("dup")})
	gd.Handle(wire.Frame{Kind: wire.KindDirect, Topic: "t", Producer: "p", Sequence: 2, Payload: []byte("stale")})

	require.Len(t, *delivered, 1)
	require.Equal(t, []byte("first"), (*delivered)[0].Payload)
}

// HEAD never reaches the application, only DATA/DIRECT do.
func TestGapDetector_HeadNeverDelivered(t *testing.T) {
	gd, _, delivered := newTestDetector(t, seqindex.ResetLatest)

	gd.Handle(wire.Frame{Kind: wire.KindHead, Topic: "t", Producer: "p", Sequence: 0})

	require.Empty(t, *delivered)
}
