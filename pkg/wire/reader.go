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
	"errors"
	"io"
	"net"
)

// Status is the outcome of one Reader.Poll call.
type Status int

const (
	// StatusProgressed means some bytes were consumed but the frame isn't
	// complete yet; the caller should call Poll again before sleeping.
	StatusProgressed Status = iota
	// StatusWouldBlock means no further progress is possible right now;
	// the caller should re-arm readiness (or simply retry later).
	StatusWouldBlock
	// StatusComplete means a full frame is ready; call Take to retrieve it.
	StatusComplete
)

// Reader is a resumable, non-blocking frame decoder. It accumulates a
// partial header and then a partial body across arbitrarily many short
// reads, surviving 1-byte chunks without panicking. The zero value is
// ready to use.
type Reader struct {
	header    [headerSize]byte
	headerLen int

	haveLength bool
	length     uint32
	body       []byte
	bodyLen    int
}

// NewReader returns a Reader positioned at the start of a fresh header.
func NewReader() *Reader {
	return &Reader{}
}

// Poll attempts to make progress reading a frame from src. src.Read may
// return ErrWouldBlock (or any error satisfying net.Error.Timeout, the
// shape produced by a deadline-based non-blocking adapter) to signal that
// no data is currently available; Poll treats that as StatusWouldBlock
// rather than a terminal error.
//
// The errors Poll returns are *ErrNotPackage, *ErrMissingHead (the
// stream ended while collecting the header; Partial holds the header
// bytes read before that, and is empty if there were none),
// *ErrTransmissionInterrupted (the stream ended mid-body), or an I/O
// error from src passed through. Any error resets the reader so it is
// immediately ready to decode the next frame, matching the "reader must
// be robust against short reads; it must not panic" requirement.
func (r *Reader) Poll(src io.Reader) (Status, error) {
	if !r.haveLength {
		status, err := r.pollHeader(src)
		if err != nil || status != StatusComplete {
			return status, err
		}
		// Header just completed this call. A heartbeat (length 0) is
		// complete now; otherwise report progress and let the caller poll
		// again for the body. The header read asks for at most 8 bytes,
		// so no body bytes have been consumed yet.
		if r.length == 0 {
			return StatusComplete, nil
		}
		return StatusProgressed, nil
	}
	return r.pollBody(src)
}

func (r *Reader) pollHeader(src io.Reader) (Status, error) {
	n, err := src.Read(r.header[r.headerLen:headerSize])
	if n > 0 {
		r.headerLen += n
	}
	if err != nil {
		if isWouldBlock(err) {
			if n > 0 {
				return StatusProgressed, nil
			}
			return StatusWouldBlock, nil
		}
		if errors.Is(err, io.EOF) {
			partial := append([]byte(nil), r.header[:r.headerLen]...)
			r.reset()
			return StatusWouldBlock, &ErrMissingHead{Partial: partial}
		}
		r.reset()
		return StatusWouldBlock, err
	}
	if n == 0 {
		r.reset()
		return StatusWouldBlock, &ErrMissingHead{Partial: nil}
	}
	if r.headerLen < headerSize {
		return StatusProgressed, nil
	}

	length, ok := verifyHeader(r.header)
	if !ok {
		hdr := r.header
		r.reset()
		return StatusWouldBlock, &ErrNotPackage{Header: hdr}
	}
	r.haveLength = true
	r.length = length
	r.body = make([]byte, length)
	r.bodyLen = 0
	return StatusComplete, nil
}

func (r *Reader) pollBody(src io.Reader) (Status, error) {
	if r.length == 0 {
		return StatusComplete, nil
	}
	n, err := src.Read(r.body[r.bodyLen:])
	if n > 0 {
		r.bodyLen += n
	}
	if err != nil {
		if isWouldBlock(err) {
			if n > 0 {
				return StatusProgressed, nil
			}
			return StatusWouldBlock, nil
		}
		partial := append([]byte(nil), r.body[:r.bodyLen]...)
		want := int(r.length)
		r.reset()
		if errors.Is(err, io.EOF) {
			return StatusWouldBlock, &ErrTransmissionInterrupted{Partial: partial, Want: want}
		}
		return StatusWouldBlock, err
	}
	if n == 0 {
		partial := append([]byte(nil), r.body[:r.bodyLen]...)
		want := int(r.length)
		r.reset()
		return StatusWouldBlock, &ErrTransmissionInterrupted{Partial: partial, Want: want}
	}
	if r.bodyLen == int(r.length) {
		return StatusComplete, nil
	}
	return StatusProgressed, nil
}

// Take returns the completed frame's body and resets the reader so it is
// ready to decode the next frame on the same connection. Only call it
// after Poll has returned StatusComplete.
func (r *Reader) Take() []byte {
	body := r.body
	if body == nil {
		body = []byte{}
	}
	r.reset()
	return body
}

func (r *Reader) reset() {
	r.headerLen = 0
	r.haveLength = false
	r.length = 0
	r.body = nil
	r.bodyLen = 0
}

func isWouldBlock(err error) bool {
	if errors.Is(err, ErrWouldBlock) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
