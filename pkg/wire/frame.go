// Package wire defines the dafka frame data model: the tagged inbound
// record (DATA, DIRECT, HEAD) and the two outbound request records (FETCH,
// EARLIEST), along with the prefix-match filter scheme peers subscribe on.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Kind tags an inbound frame's variant. Case analysis on Kind is explicit
// throughout this module rather than via an interface with per-kind
// methods: there are exactly three inbound kinds and they will not grow.
type Kind uint8

const (
	// KindData is a topic-broadcast record from a producer.
	KindData Kind = iota
	// KindDirect is a record addressed to a single consumer, typically a
	// store's reply to a Fetch.
	KindDirect
	// KindHead is a payload-less high-water-sequence announcement.
	KindHead
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "DATA"
	case KindDirect:
		return "DIRECT"
	case KindHead:
		return "HEAD"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Frame is an inbound DATA, DIRECT, or HEAD record. Payload is nil for
// KindHead.
type Frame struct {
	Kind     Kind
	Topic    string
	Producer string // producer address
	Sequence uint64
	Payload  []byte
}

// Key identifies the (topic, producer) pair a frame belongs to.
func (f Frame) Key() Key { return Key{Topic: f.Topic, Producer: f.Producer} }

// Key is the composite (topic, producer-address) identity of a frame. It
// has value semantics so it can be used directly as a map key, per the
// design note against concatenated string keys. pkg/seqindex keys its index
// on its own seqindex.Key of the same shape, not on this type.
type Key struct {
	Topic    string
	Producer string
}

func (k Key) String() string { return k.Topic + "/" + k.Producer }

// Fetch requests the inclusive range [From, From+Count-1] of DATA records
// produced by Producer for Topic, to be replied to Consumer as DIRECT
// frames.
type Fetch struct {
	Topic    string
	Producer string
	From     uint64
	Count    uint64
	Consumer string // reply-to address
}

// Earliest announces that Consumer wants the full history of Topic; stores
// reply by streaming DIRECT frames from sequence 0.
type Earliest struct {
	Topic    string
	Consumer string
}

// Filter prefixes. Peers (and our own subscriber socket) match inbound
// frames by a prefix of the form kind-byte ++ topic-or-address, so two
// frames only collide if both the kind byte and the full string match.

// DataPrefix returns the subscription prefix for DATA frames of topic.
func DataPrefix(topic string) []byte { return prefix(byte(KindData), topic) }

// HeadPrefix returns the subscription prefix for HEAD frames of topic.
func HeadPrefix(topic string) []byte { return prefix(byte(KindHead), topic) }

// DirectPrefix returns the subscription prefix for DIRECT frames addressed
// to address.
func DirectPrefix(address string) []byte { return prefix(byte(KindDirect), address) }

func prefix(kind byte, s string) []byte {
	b := make([]byte, 0, 1+len(s))
	b = append(b, kind)
	b = append(b, s...)
	return b
}

// Encode writes a binary representation of f to w: kind byte, then
// length-prefixed topic, length-prefixed producer address, the 8-byte
// sequence, and (for DATA/DIRECT) the length-prefixed payload.
func (f Frame) Encode(w io.Writer) error {
	if err := writeByte(w, byte(f.Kind)); err != nil {
		return err
	}
	if err := writeString(w, f.Topic); err != nil {
		return err
	}
	if err := writeString(w, f.Producer); err != nil {
		return err
	}
	if err := writeUint64(w, f.Sequence); err != nil {
		return err
	}
	if f.Kind == KindHead {
		return nil
	}
	return writeBytes(w, f.Payload)
}

// DecodeFrame reads a Frame previously written by Encode. A transient
// decode error (truncated frame, unknown kind byte) is returned as-is; the
// caller's policy is to drop the frame and continue, per the consumer's
// error-handling design — DecodeFrame itself never panics on bad input.
func DecodeFrame(r io.Reader) (Frame, error) {
	var f Frame
	kb, err := readByte(r)
	if err != nil {
		return f, err
	}
	switch Kind(kb) {
	case KindData, KindDirect, KindHead:
		f.Kind = Kind(kb)
	default:
		return f, fmt.Errorf("wire: unknown frame kind byte %d", kb)
	}
	if f.Topic, err = readString(r); err != nil {
		return f, err
	}
	if f.Producer, err = readString(r); err != nil {
		return f, err
	}
	if f.Sequence, err = readUint64(r); err != nil {
		return f, err
	}
	if f.Kind == KindHead {
		return f, nil
	}
	if f.Payload, err = readBytes(r); err != nil {
		return f, err
	}
	return f, nil
}

// Encode writes a binary Fetch frame: topic, producer, from, count, consumer.
func (fr Fetch) Encode(w io.Writer) error {
	if err := writeString(w, fr.Topic); err != nil {
		return err
	}
	if err := writeString(w, fr.Producer); err != nil {
		return err
	}
	if err := writeUint64(w, fr.From); err != nil {
		return err
	}
	if err := writeUint64(w, fr.Count); err != nil {
		return err
	}
	return writeString(w, fr.Consumer)
}

// DecodeFetch reads a Fetch frame previously written by Encode.
func DecodeFetch(r io.Reader) (Fetch, error) {
	var fr Fetch
	var err error
	if fr.Topic, err = readString(r); err != nil {
		return fr, err
	}
	if fr.Producer, err = readString(r); err != nil {
		return fr, err
	}
	if fr.From, err = readUint64(r); err != nil {
		return fr, err
	}
	if fr.Count, err = readUint64(r); err != nil {
		return fr, err
	}
	if fr.Consumer, err = readString(r); err != nil {
		return fr, err
	}
	return fr, nil
}

// Encode writes a binary Earliest frame: topic, consumer.
func (e Earliest) Encode(w io.Writer) error {
	if err := writeString(w, e.Topic); err != nil {
		return err
	}
	return writeString(w, e.Consumer)
}

// DecodeEarliest reads an Earliest frame previously written by Encode.
func DecodeEarliest(r io.Reader) (Earliest, error) {
	var e Earliest
	var err error
	if e.Topic, err = readString(r); err != nil {
		return e, err
	}
	if e.Consumer, err = readString(r); err != nil {
		return e, err
	}
	return e, nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func writeBytes(w io.Writer, p []byte) error {
	if err := writeUint64(w, uint64(len(p))); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	_, err := w.Write(p)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	n, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	const maxFrame = 64 << 20
	if n > maxFrame {
		return nil, fmt.Errorf("wire: frame payload too large (%d bytes)", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeString(w io.Writer, s string) error {
	return writeBytes(w, []byte(s))
}

func readString(r io.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
