package beacon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	secret := []byte("cluster-secret")
	a := announcement{Kind: PeerStore, Address: "store-1", Topic: "orders"}

	raw, err := encode(a, secret)
	require.NoError(t, err)

	got, err := decode(raw, secret)
	require.NoError(t, err)
	require.Equal(t, a, got)
}

func TestDecode_WrongSecretRejected(t *testing.T) {
	raw, err := encode(announcement{Kind: PeerProducer, Address: "p1"}, []byte("right"))
	require.NoError(t, err)

	_, err = decode(raw, []byte("wrong"))
	require.Error(t, err)
}

func TestDecode_TamperedBodyRejected(t *testing.T) {
	secret := []byte("s")
	raw, err := encode(announcement{Kind: PeerConsumer, Address: "c1"}, secret)
	require.NoError(t, err)

	tampered := append([]byte(nil), raw...)
	tampered[len(magic)] ^= 0xFF // flip the kind byte after the MAC was computed

	_, err = decode(tampered, secret)
	require.Error(t, err)
}

func TestDecode_BadMagicRejected(t *testing.T) {
	_, err := decode([]byte("NOPE!!!!"), nil)
	require.Error(t, err)
}

func TestDecode_TooShortRejected(t *testing.T) {
	_, err := decode([]byte("DF"), nil)
	require.Error(t, err)
}

func TestPeerKind_String(t *testing.T) {
	require.Equal(t, "producer", PeerProducer.String())
	require.Equal(t, "store", PeerStore.String())
	require.Equal(t, "consumer", PeerConsumer.String())
	require.Equal(t, "PeerKind(99)", PeerKind(99).String())
}
