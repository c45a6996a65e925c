package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4"
)

// Compression selects the codec used to compress a DATA/DIRECT payload
// before it is published, mirroring the record-batch compression a Kafka
// client applies. Payloads are opaque to the gap detector either way; only
// the wire codec and the application see decompressed bytes.
type Compression uint8

const (
	// CompressionNone sends payloads uncompressed.
	CompressionNone Compression = iota
	// CompressionGzip compresses payloads with klauspost/compress's gzip,
	// a drop-in faster replacement for compress/gzip.
	CompressionGzip
	// CompressionSnappy compresses payloads with Google's Snappy codec,
	// favoring speed over ratio.
	CompressionSnappy
	// CompressionLZ4 compresses payloads with LZ4, favoring speed over
	// ratio with a different tradeoff curve than Snappy.
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionSnappy:
		return "snappy"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// Codec compresses and decompresses frame payloads.
type Codec interface {
	Compress(p []byte) ([]byte, error)
	Decompress(p []byte) ([]byte, error)
}

// NewCodec returns the Codec for c. CompressionNone returns a no-op codec.
func NewCodec(c Compression) (Codec, error) {
	switch c {
	case CompressionNone:
		return noopCodec{}, nil
	case CompressionGzip:
		return gzipCodec{}, nil
	case CompressionSnappy:
		return snappyCodec{}, nil
	case CompressionLZ4:
		return lz4Codec{}, nil
	default:
		return nil, fmt.Errorf("wire: unknown compression %d", uint8(c))
	}
}

type noopCodec struct{}

func (noopCodec) Compress(p []byte) ([]byte, error)   { return p, nil }
func (noopCodec) Decompress(p []byte) ([]byte, error) { return p, nil }

type gzipCodec struct{}

func (gzipCodec) Compress(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(p); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gzipCodec) Decompress(p []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(p))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return io.ReadAll(gr)
}

type snappyCodec struct{}

func (snappyCodec) Compress(p []byte) ([]byte, error) {
	return snappy.Encode(nil, p), nil
}

func (snappyCodec) Decompress(p []byte) ([]byte, error) {
	return snappy.Decode(nil, p)
}

type lz4Codec struct{}

func (lz4Codec) Compress(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(p); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (lz4Codec) Decompress(p []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(p))
	return io.ReadAll(zr)
}
