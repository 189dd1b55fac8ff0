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
	"net"
	"time"
)

// NonBlockingConn adapts a net.Conn, which has no EWOULDBLOCK-style
// try_read, into the non-blocking Read contract Reader.Poll expects: each
// Read call arms a deadline one millisecond out first, so it returns
// queued data at once and returns a timeout error, instead of blocking,
// when no data is queued. (A deadline already in the past would make
// net.Conn fail the Read without reading, even with data queued.) This is
// the standard Go idiom for driving a blocking net.Conn from a
// non-blocking poll loop.
type NonBlockingConn struct {
	net.Conn
}

// Read implements io.Reader by reading without blocking.
func (c NonBlockingConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
		return 0, err
	}
	n, err := c.Conn.Read(p)
	// Clear the deadline so a later blocking Read (if any) isn't affected.
	_ = c.Conn.SetReadDeadline(time.Time{})
	return n, err
}
