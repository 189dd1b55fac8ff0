// The MIT License (MIT)
//
// # Copyright (c) 2026 The Partyline Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package wire

import (
	"encoding/binary"
	"io"
)

// headerSize is the fixed 8-byte header: a 32-bit big-endian length
// followed by its bitwise complement.
const headerSize = 8

// Write frames payload as a length-prefixed package and writes it to w. An
// empty payload is legal and is the heartbeat: header only, no body.
func Write(w io.Writer, payload []byte) error {
	var header [headerSize]byte
	l := uint32(len(payload))
	binary.BigEndian.PutUint32(header[0:4], l)
	binary.BigEndian.PutUint32(header[4:8], ^l)

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// Read performs one blocking frame read from r. It issues a single Read
// call for the 8-byte header and, once the length is validated, a single
// Read call for the body — it does not loop to assemble a short read into
// a complete one. This is the fragile, single-shot code path, used only
// for short request/response dialogs; Reader is the robust, resumable one
// used everywhere a connection stays open for its lifetime. A zero-length
// body is returned as an empty slice, not an error — this is the
// heartbeat.
func Read(r io.Reader) ([]byte, error) {
	var header [headerSize]byte
	n, err := r.Read(header[:])
	if err != nil && n == 0 {
		return nil, &ErrOther{Reason: err.Error()}
	}
	if n == 0 {
		return nil, &ErrOther{Reason: "connection closed"}
	}
	if n != headerSize {
		return nil, &ErrMissingHead{Partial: append([]byte(nil), header[:n]...)}
	}

	length, ok := verifyHeader(header)
	if !ok {
		return nil, &ErrNotPackage{Header: header}
	}
	if length == 0 {
		return []byte{}, nil
	}

	body := make([]byte, length)
	rn, err := r.Read(body)
	if err != nil && rn == 0 {
		return nil, &ErrTransmissionInterrupted{Partial: nil, Want: int(length)}
	}
	if rn != int(length) {
		return nil, &ErrTransmissionInterrupted{Partial: body[:rn], Want: int(length)}
	}
	return body, nil
}

// verifyHeader checks the complement sentinel and returns the declared
// payload length.
func verifyHeader(header [headerSize]byte) (uint32, bool) {
	length := binary.BigEndian.Uint32(header[0:4])
	complement := binary.BigEndian.Uint32(header[4:8])
	if complement != ^length {
		return 0, false
	}
	return length, true
}
