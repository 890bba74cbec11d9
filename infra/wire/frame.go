package wire

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
)

// ReadFrame reads one length-prefixed frame from r. It returns io.EOF
// untouched when r ends cleanly between frames.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "read frame length")
	}
	n := binary.LittleEndian.Uint32(lengthBuf[:])
	if n < HeaderSize || n > MaxFrameSize {
		return nil, errors.Wrapf(ErrLengthMismatch, "frame length %d", n)
	}

	frame := make([]byte, n)
	copy(frame, lengthBuf[:])
	if _, err := io.ReadFull(r, frame[4:]); err != nil {
		return nil, errors.Wrap(err, "read frame body")
	}
	return frame, nil
}
