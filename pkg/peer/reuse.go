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

package peer

import (
	"context"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// reuseControl enables SO_REUSEADDR and SO_REUSEPORT on the socket before
// it is bound, so the same local endpoint can be used to both dial the
// directory server and, separately, listen for inbound peer connections.
func reuseControl(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		if sockErr != nil {
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// dialFromReuse dials remote from local with SO_REUSEADDR/SO_REUSEPORT set,
// so the same local endpoint remains free to be listened on afterward.
func dialFromReuse(local, remote string, timeout time.Duration) (net.Conn, error) {
	localAddr, err := net.ResolveTCPAddr("tcp", local)
	if err != nil {
		return nil, err
	}
	dialer := net.Dialer{
		LocalAddr: localAddr,
		Control:   reuseControl,
		Timeout:   timeout,
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return dialer.DialContext(ctx, "tcp", remote)
}

// listenReuse opens a listener on local with the same socket options, so
// it can coexist with a connection already dialed from the identical
// endpoint. Listening for inbound peer connections is an optional
// convenience: callers should treat failure here as non-fatal, since a
// client that can't listen still works by dialing every peer the server
// announces.
func listenReuse(local string) (net.Listener, error) {
	lc := net.ListenConfig{Control: reuseControl}
	return lc.Listen(context.Background(), "tcp", local)
}
