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

import "github.com/meshroom/partyline/pkg/proto"

// Event is one UI-sink notification. Every peer session and the control
// session write to the same sink channel; rendering them is left to the
// caller, so pkg/peer only defines the events, never draws them.
type Event interface{ isEvent() }

// ChatEvent is a nonempty peer-link frame, attributed to the peer that
// sent it.
type ChatEvent struct {
	From proto.BaseUserInfo
	Text string
}

func (ChatEvent) isEvent() {}

// DisconnectEvent announces that a peer session ended.
type DisconnectEvent struct {
	Peer proto.BaseUserInfo
}

func (DisconnectEvent) isEvent() {}

// JoinedEvent announces that the control link pushed a new member's
// ClientInfo and a peer session dial is being attempted.
type JoinedEvent struct {
	Peer proto.ClientInfo
}

func (JoinedEvent) isEvent() {}

// LogEvent carries a human-readable status line (connection errors,
// dial failures) for the UI sink to surface.
type LogEvent struct {
	Text string
}

func (LogEvent) isEvent() {}
