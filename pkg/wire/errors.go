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

// Package wire implements the length-prefixed framing used by every socket
// in partyline: an 8-byte header (length plus its bitwise complement as a
// sentinel) followed by the payload.
package wire

import (
	"errors"
	"fmt"
)

// ErrNotPackage is returned when a header's complement check fails. The
// stream is not resynchronized — the caller decides whether to close it.
type ErrNotPackage struct {
	Header [8]byte
}

func (e *ErrNotPackage) Error() string {
	return fmt.Sprintf("wire: not a package: header %x", e.Header)
}

// ErrMissingHead is returned when fewer than 8 header bytes could be read.
// An empty Partial means the peer closed the connection before sending
// anything; a non-empty Partial means a short read that a non-blocking
// caller may retry.
type ErrMissingHead struct {
	Partial []byte
}

func (e *ErrMissingHead) Error() string {
	return fmt.Sprintf("wire: missing header (got %d of 8 bytes)", len(e.Partial))
}

// PeerClosed reports whether this ErrMissingHead signals a closed peer
// (zero bytes read) rather than a short-read-retry-ok condition.
func (e *ErrMissingHead) PeerClosed() bool {
	return len(e.Partial) == 0
}

// ErrTransmissionInterrupted is returned when a body read returns fewer
// bytes than the declared length and the stream has nothing left to give.
type ErrTransmissionInterrupted struct {
	Partial []byte
	Want    int
}

func (e *ErrTransmissionInterrupted) Error() string {
	return fmt.Sprintf("wire: transmission interrupted: got %d of %d bytes", len(e.Partial), e.Want)
}

// ErrOther reports a blocking Read that returned zero bytes while
// collecting the header — the stream is closed. Matches the "zero bytes
// -> closed -> error-kind Other" clause of the blocking read contract.
type ErrOther struct {
	Reason string
}

func (e *ErrOther) Error() string {
	if e.Reason == "" {
		return "wire: connection closed"
	}
	return "wire: " + e.Reason
}

// ErrWouldBlock is the sentinel a Reader returns from Poll when no further
// progress is possible right now; the caller should re-arm readiness (or,
// for a deadline-based Reader, simply call Poll again later).
var ErrWouldBlock = errors.New("wire: would block")

// Continuable reports whether a session can keep running after err, per
// the propagation policy in the framing design: short reads and
// WouldBlock never end a session; a closed peer, a bad header, or a
// truncated body do.
func Continuable(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, ErrWouldBlock) {
		return true
	}
	var missing *ErrMissingHead
	if errors.As(err, &missing) {
		return !missing.PeerClosed()
	}
	return false
}
