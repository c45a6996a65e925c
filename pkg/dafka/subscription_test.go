package dafka

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dafka-go/consumer/pkg/seqindex"
	"github.com/dafka-go/consumer/pkg/transport"
	"github.com/dafka-go/consumer/pkg/wire"
)

func publishFrame(t *testing.T, bus *transport.MemoryBus, subject string, f wire.Frame) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, f.Encode(&buf))
	require.NoError(t, bus.Publish(context.Background(), subject, buf.Bytes()))
}

func TestSubscriptionManager_SubscribeIsIdempotent(t *testing.T) {
	bus := transport.NewMemoryBus()
	emit := NewFetchEmitter(bus, "c1", 0, NopLogger{}, nil)
	var got []wire.Frame
	sm := NewSubscriptionManager(bus, func(f wire.Frame) { got = append(got, f) }, seqindex.ResetLatest, emit, NopLogger{}, nil)

	require.NoError(t, sm.Subscribe("t"))
	require.NoError(t, sm.Subscribe("t"))
	require.True(t, sm.Subscribed("t"))

	publishFrame(t, bus, transport.DataSubject("t"), wire.Frame{Kind: wire.KindData, Topic: "t", Producer: "p", Sequence: 1, Payload: []byte("x")})

	require.Len(t, got, 1, "subscribing twice must not double-register the handler")
}

func TestSubscriptionManager_EarliestEmitsOnSubscribe(t *testing.T) {
	bus := transport.NewMemoryBus()
	emit := NewFetchEmitter(bus, "c1", 0, NopLogger{}, nil)
	var earliest []wire.Earliest
	require.NoError(t, bus.Subscribe(transport.EarliestSubject(), func(m transport.Message) {
		e, err := wire.DecodeEarliest(byteReader(m.Data))
		require.NoError(t, err)
		earliest = append(earliest, e)
	}))

	sm := NewSubscriptionManager(bus, func(wire.Frame) {}, seqindex.ResetEarliest, emit, NopLogger{}, nil)
	require.NoError(t, sm.Subscribe("hello"))

	require.Len(t, earliest, 1)
	require.Equal(t, "hello", earliest[0].Topic)
	require.Equal(t, "c1", earliest[0].Consumer)
}

func TestSubscriptionManager_LatestDoesNotEmitEarliest(t *testing.T) {
	bus := transport.NewMemoryBus()
	emit := NewFetchEmitter(bus, "c1", 0, NopLogger{}, nil)
	var earliest []wire.Earliest
	require.NoError(t, bus.Subscribe(transport.EarliestSubject(), func(m transport.Message) {
		earliest = append(earliest, wire.Earliest{})
	}))

	sm := NewSubscriptionManager(bus, func(wire.Frame) {}, seqindex.ResetLatest, emit, NopLogger{}, nil)
	require.NoError(t, sm.Subscribe("hello"))

	require.Empty(t, earliest)
}

func TestSubscriptionManager_DropsMismatchedKind(t *testing.T) {
	bus := transport.NewMemoryBus()
	emit := NewFetchEmitter(bus, "c1", 0, NopLogger{}, nil)
	var got []wire.Frame
	sm := NewSubscriptionManager(bus, func(f wire.Frame) { got = append(got, f) }, seqindex.ResetLatest, emit, NopLogger{}, nil)
	require.NoError(t, sm.Subscribe("t"))

	var buf bytes.Buffer
	require.NoError(t, (wire.Frame{Kind: wire.KindHead, Topic: "t", Producer: "p", Sequence: 1}).Encode(&buf))
	// Publish a HEAD-encoded frame on the DATA subject: the subject says
	// DATA, the decoded kind byte says HEAD.
	require.NoError(t, bus.Publish(context.Background(), transport.DataSubject("t"), buf.Bytes()))

	require.Empty(t, got)
}

func TestSubscriptionManager_DecompressesPayload(t *testing.T) {
	bus := transport.NewMemoryBus()
	emit := NewFetchEmitter(bus, "c1", 0, NopLogger{}, nil)
	codec, err := wire.NewCodec(wire.CompressionGzip)
	require.NoError(t, err)

	var got []wire.Frame
	sm := NewSubscriptionManager(bus, func(f wire.Frame) { got = append(got, f) }, seqindex.ResetLatest, emit, NopLogger{}, codec)
	require.NoError(t, sm.Subscribe("t"))

	compressed, err := codec.Compress([]byte("hello world"))
	require.NoError(t, err)
	publishFrame(t, bus, transport.DataSubject("t"), wire.Frame{Kind: wire.KindData, Topic: "t", Producer: "p", Sequence: 1, Payload: compressed})

	require.Len(t, got, 1)
	require.Equal(t, []byte("hello world"), got[0].Payload)
}
