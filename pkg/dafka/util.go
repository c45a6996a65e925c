package dafka

import "bytes"

// byteReader adapts a []byte to the io.Reader the wire decoders expect. It
// is a thin wrapper around bytes.NewReader.
func byteReader(p []byte) *bytes.Reader {
	return bytes.NewReader(p)
}
