package beacon

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// PeerKind tags the role a beacon announcement advertises.
type PeerKind uint8

const (
	// PeerProducer announces a topic publisher.
	PeerProducer PeerKind = iota
	// PeerStore announces a store replica able to serve fetch/earliest
	// requests.
	PeerStore
	// PeerConsumer announces another consumer; the core only needs this
	// to avoid treating its own broadcasts as a newly-discovered peer.
	PeerConsumer
)

func (k PeerKind) String() string {
	switch k {
	case PeerProducer:
		return "producer"
	case PeerStore:
		return "store"
	case PeerConsumer:
		return "consumer"
	default:
		return fmt.Sprintf("PeerKind(%d)", uint8(k))
	}
}

const magic = "DFKB"

// announcement is the UDP broadcast payload: a peer kind, the peer's
// address (its dafka consumer/producer/store identity, not its IP), the
// topic it serves (empty for consumers), and a keyed authenticity tag so a
// stray process on the broadcast segment can't inject fake peers.
type announcement struct {
	Kind    PeerKind
	Address string
	Topic   string
}

// encode serializes a into the beacon wire format and appends a blake2b-256
// MAC over the fields, keyed with the cluster secret.
func encode(a announcement, secret []byte) ([]byte, error) {
	body := make([]byte, 0, 64)
	body = append(body, magic...)
	body = append(body, byte(a.Kind))
	body = appendString(body, a.Address)
	body = appendString(body, a.Topic)

	mac, err := blake2b.New256(secret)
	if err != nil {
		return nil, fmt.Errorf("beacon: new mac: %w", err)
	}
	mac.Write(body)
	return mac.Sum(body), nil
}

// decode parses and authenticates a beacon datagram. A tag mismatch or a
// malformed datagram is returned as an error; the caller's policy (matching
// the core's transient-decode-error handling) is to drop it and keep
// listening.
func decode(raw []byte, secret []byte) (announcement, error) {
	var a announcement
	if len(raw) < len(magic)+1 {
		return a, fmt.Errorf("beacon: datagram too short")
	}
	if string(raw[:len(magic)]) != magic {
		return a, fmt.Errorf("beacon: bad magic")
	}

	mac, err := blake2b.New256(secret)
	if err != nil {
		return a, fmt.Errorf("beacon: new mac: %w", err)
	}
	if len(raw) < mac.Size() {
		return a, fmt.Errorf("beacon: datagram shorter than MAC")
	}
	body, tag := raw[:len(raw)-mac.Size()], raw[len(raw)-mac.Size():]
	mac.Write(body)
	want := mac.Sum(nil)
	if !hmacEqual(want, tag) {
		return a, fmt.Errorf("beacon: authenticity tag mismatch")
	}

	rest := body[len(magic):]
	if len(rest) < 1 {
		return a, fmt.Errorf("beacon: truncated kind byte")
	}
	a.Kind = PeerKind(rest[0])
	rest = rest[1:]

	addr, rest, err := readString(rest)
	if err != nil {
		return a, err
	}
	a.Address = addr

	topic, _, err := readString(rest)
	if err != nil {
		return a, err
	}
	a.Topic = topic
	return a, nil
}

func hmacEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}

func appendString(b []byte, s string) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	b = append(b, lenBuf[:]...)
	return append(b, s...)
}

func readString(b []byte) (string, []byte, error) {
	if len(b) < 2 {
		return "", nil, fmt.Errorf("beacon: truncated string length")
	}
	n := int(binary.BigEndian.Uint16(b))
	b = b[2:]
	if len(b) < n {
		return "", nil, fmt.Errorf("beacon: truncated string body")
	}
	return string(b[:n]), b[n:], nil
}
