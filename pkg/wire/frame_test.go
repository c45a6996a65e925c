package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []Frame{
		{Kind: KindData, Topic: "hello", Producer: "p1", Sequence: 3, Payload: []byte("HELLO MATE")},
		{Kind: KindDirect, Topic: "hello", Producer: "p1", Sequence: 1, Payload: []byte("x")},
		{Kind: KindHead, Topic: "hello", Producer: "p1", Sequence: 9},
		{Kind: KindData, Topic: "empty", Producer: "p2", Sequence: 0, Payload: nil},
	}
	for _, f := range cases {
		var buf bytes.Buffer
		require.NoError(t, f.Encode(&buf))
		got, err := DecodeFrame(&buf)
		require.NoError(t, err)
		require.Equal(t, f.Kind, got.Kind)
		require.Equal(t, f.Topic, got.Topic)
		require.Equal(t, f.Producer, got.Producer)
		require.Equal(t, f.Sequence, got.Sequence)
		require.True(t, bytes.Equal(f.Payload, got.Payload))
	}
}

func TestDecodeFrameUnknownKind(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0xFF})
	_, err := DecodeFrame(buf)
	require.Error(t, err)
}

func TestFetchRoundTrip(t *testing.T) {
	fr := Fetch{Topic: "t", Producer: "p1", From: 6, Count: 4, Consumer: "c1"}
	var buf bytes.Buffer
	require.NoError(t, fr.Encode(&buf))
	got, err := DecodeFetch(&buf)
	require.NoError(t, err)
	require.Equal(t, fr, got)
}

func TestEarliestRoundTrip(t *testing.T) {
	e := Earliest{Topic: "t", Consumer: "c1"}
	var buf bytes.Buffer
	require.NoError(t, e.Encode(&buf))
	got, err := DecodeEarliest(&buf)
	require.NoError(t, err)
	require.Equal(t, e, got)
}

func TestPrefixesDistinguishKind(t *testing.T) {
	data := DataPrefix("hello")
	head := HeadPrefix("hello")
	direct := DirectPrefix("hello")
	require.False(t, bytes.Equal(data, head))
	require.False(t, bytes.Equal(data, direct))
	require.True(t, bytes.HasPrefix(append([]byte{byte(KindData)}, "hello"...), data))
}

func TestCodecRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionSnappy, CompressionLZ4} {
		codec, err := NewCodec(c)
		require.NoError(t, err)
		in := []byte("HELLO MATE, THIS IS A REPEATED REPEATED REPEATED PAYLOAD")
		compressed, err := codec.Compress(in)
		require.NoError(t, err)
		out, err := codec.Decompress(compressed)
		require.NoError(t, err)
		require.Equal(t, in, out)
	}
}
