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
	"net"

	"github.com/meshroom/partyline/pkg/proto"
	"github.com/meshroom/partyline/pkg/wire"
)

// swapIdentity runs the identity-swap handshake: write self's
// BaseUserInfo, then read the peer's. addr is the already-known
// advertised endpoint used to build the resulting ClientInfo — the
// handshake itself carries no address, only id and name.
//
// This is deliberately unverified: the peer's claimed identity is taken
// on faith. See DESIGN.md for the open question this resolves. Do not
// add a challenge or signature here.
func swapIdentity(conn net.Conn, self proto.BaseUserInfo, addr string) (proto.ClientInfo, error) {
	data, err := proto.Marshal(self)
	if err != nil {
		return proto.ClientInfo{}, err
	}
	if err := wire.Write(conn, data); err != nil {
		return proto.ClientInfo{}, err
	}

	frame, err := wire.Read(conn)
	if err != nil {
		return proto.ClientInfo{}, err
	}
	var peer proto.BaseUserInfo
	if err := proto.Unmarshal(frame, &peer); err != nil {
		return proto.ClientInfo{}, err
	}
	return proto.ClientInfo{ID: peer.ID, Name: peer.Name, Addr: addr}, nil
}

// acceptIdentity is the inbound-side counterpart of swapIdentity, used
// when a peer connects to our listening socket instead of us dialing
// them: read their announcement first, then reply with ours. Order is
// the only difference from swapIdentity; by convention the dialing side
// (the initiator) always writes first.
func acceptIdentity(conn net.Conn, self proto.BaseUserInfo, addr string) (proto.ClientInfo, error) {
	frame, err := wire.Read(conn)
	if err != nil {
		return proto.ClientInfo{}, err
	}
	var peer proto.BaseUserInfo
	if err := proto.Unmarshal(frame, &peer); err != nil {
		return proto.ClientInfo{}, err
	}

	data, err := proto.Marshal(self)
	if err != nil {
		return proto.ClientInfo{}, err
	}
	if err := wire.Write(conn, data); err != nil {
		return proto.ClientInfo{}, err
	}
	return proto.ClientInfo{ID: peer.ID, Name: peer.Name, Addr: addr}, nil
}
