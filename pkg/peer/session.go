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
	"time"

	"github.com/rs/zerolog"

	"github.com/meshroom/partyline/pkg/proto"
	"github.com/meshroom/partyline/pkg/wire"
)

// Session is one active peer link: a socket to another room member,
// multiplexing inbound chat frames, a subscription to the process-wide
// local-input broadcast, and a periodic heartbeat.
type Session struct {
	conn      net.Conn
	peer      proto.ClientInfo
	sink      chan<- Event
	input     *Broadcast
	heartbeat time.Duration
	log       zerolog.Logger
}

// NewSession wraps an established, identity-swapped peer connection.
func NewSession(conn net.Conn, peer proto.ClientInfo, sink chan<- Event, input *Broadcast, heartbeat time.Duration, log zerolog.Logger) *Session {
	return &Session{
		conn:      conn,
		peer:      peer,
		sink:      sink,
		input:     input,
		heartbeat: heartbeat,
		log:       log.With().Uint32("peer_id", peer.ID).Str("peer_name", peer.Name).Logger(),
	}
}

// Run drives the session until the socket dies, a heartbeat write
// fails, or the local-input broadcast closes. It emits one
// DisconnectEvent before returning; like every event, it is dropped if
// the sink is full.
func (s *Session) Run() {
	defer s.conn.Close()
	defer s.emit(DisconnectEvent{Peer: proto.BaseUserInfo{ID: s.peer.ID, Name: s.peer.Name}})

	lineCh, unsubscribe := s.input.Subscribe()
	defer unsubscribe()

	frames := make(chan []byte)
	errs := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go s.readFrames(frames, errs, done)

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if len(frame) == 0 {
				continue // heartbeat
			}
			s.emit(ChatEvent{
				From: proto.BaseUserInfo{ID: s.peer.ID, Name: s.peer.Name},
				Text: string(frame),
			})

		case line, ok := <-lineCh:
			if !ok {
				s.log.Debug().Msg("local input source closed")
				return
			}
			if err := wire.Write(s.conn, []byte(line)); err != nil {
				s.log.Debug().Err(err).Msg("peer write failed")
				return
			}

		case err := <-errs:
			s.log.Debug().Err(err).Msg("peer session read terminated")
			return

		case <-ticker.C:
			if err := wire.Write(s.conn, nil); err != nil {
				s.log.Debug().Err(err).Msg("peer heartbeat failed")
				return
			}
		}
	}
}

func (s *Session) emit(ev Event) {
	select {
	case s.sink <- ev:
	default:
		s.log.Warn().Msg("UI sink full, dropping event")
	}
}

func (s *Session) readFrames(frames chan<- []byte, errs chan<- error, done <-chan struct{}) {
	r := wire.NewReader()
	for {
		status, err := r.Poll(s.conn)
		if err != nil {
			if wire.Continuable(err) {
				continue
			}
			select {
			case errs <- err:
			case <-done:
			}
			return
		}
		if status != wire.StatusComplete {
			continue
		}
		select {
		case frames <- r.Take():
		case <-done:
			return
		}
	}
}
