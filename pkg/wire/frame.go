// Package wire implements the client↔server frame codec and message shapes
// (§6.3): each message is a length-prefixed JSON object carrying an "op"
// discriminator, sent over a plain TCP stream.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxFrameLength guards against a corrupt or hostile length prefix causing
// an unbounded allocation.
const maxFrameLength = 64 << 20

// WriteFrame writes one length-prefixed frame: a little-endian uint32
// byte count followed by payload.
func WriteFrame(w io.Writer, payload []byte) error {
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("wire: write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame written by WriteFrame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(header[:])
	if length > maxFrameLength {
		return nil, fmt.Errorf("wire: frame length %d exceeds maximum %d", length, maxFrameLength)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("wire: read frame payload: %w", err)
	}
	return payload, nil
}
