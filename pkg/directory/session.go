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

package directory

import (
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/meshroom/partyline/pkg/proto"
	"github.com/meshroom/partyline/pkg/wire"
)

// notifyBacklog bounds how many newcomer pushes a session will buffer
// before a slow member starts missing them. Fan-out to members is
// best-effort: a full channel is logged and dropped, not blocked on.
const notifyBacklog = 64

// Session runs one accepted connection's entire life: await-login, then
// the in-room loop, until the connection closes or a terminal framing
// error occurs.
type Session struct {
	conn      net.Conn
	remote    string
	users     *UserRegistry
	rooms     *RoomRegistry
	log       zerolog.Logger
	keepalive time.Duration
}

// NewSession wraps an accepted connection. keepalive is the in-room
// loop's heartbeat period and must be positive; NewSession applies no
// default (partyd passes its --keepalive flag, 300 seconds by default).
func NewSession(conn net.Conn, users *UserRegistry, rooms *RoomRegistry, log zerolog.Logger, keepalive time.Duration) *Session {
	return &Session{
		conn:      conn,
		remote:    conn.RemoteAddr().String(),
		users:     users,
		rooms:     rooms,
		log:       log,
		keepalive: keepalive,
	}
}

// Serve runs the session to completion and closes the connection.
func (s *Session) Serve() {
	defer s.conn.Close()

	user, err := s.awaitLogin()
	if err != nil {
		s.log.Debug().Err(err).Str("remote", s.remote).Msg("session ended before login")
		return
	}

	s.log = s.log.With().Uint32("user_id", user.ID).Str("user_name", user.Name).Logger()
	s.log.Info().Msg("user logged in")
	defer s.users.Remove(user.ID)

	s.inRoomLoop(user)
	s.log.Info().Msg("session closed")
}

// awaitLogin runs the login handshake, the first phase of a session: read
// frames, ignoring heartbeats, until a well-formed User payload names an
// unoccupied user, or the connection dies. This is a synchronous,
// request/response exchange — it uses the single-shot blocking Read, not
// the resumable Reader, matching kcptun's own wait_login-shaped dialogs.
func (s *Session) awaitLogin() (proto.User, error) {
	for {
		frame, err := wire.Read(s.conn)
		if err != nil {
			return proto.User{}, err
		}
		if len(frame) == 0 {
			continue
		}

		var req proto.User
		if err := proto.Unmarshal(frame, &req); err != nil {
			s.replyLogin("Fail to login user")
			continue
		}

		assigned, err := s.users.Insert(req.Name, req.Passwd)
		if err != nil {
			switch {
			case errors.Is(err, ErrUserExists):
				s.replyLogin("User already exists")
			default:
				s.replyLogin("Fail to login user")
			}
			continue
		}

		if err := wire.Write(s.conn, []byte("OK")); err != nil {
			s.users.Remove(assigned.ID)
			return proto.User{}, err
		}
		info := proto.BaseUserInfo{ID: assigned.ID, Name: assigned.Name}
		data, err := proto.Marshal(info)
		if err != nil {
			s.users.Remove(assigned.ID)
			return proto.User{}, err
		}
		if err := wire.Write(s.conn, data); err != nil {
			s.users.Remove(assigned.ID)
			return proto.User{}, err
		}
		return assigned, nil
	}
}

func (s *Session) replyLogin(msg string) {
	if err := wire.Write(s.conn, []byte(msg)); err != nil {
		s.log.Debug().Err(err).Msg("failed to write login rejection")
	}
}

// inRoomLoop runs the steady state, the second phase of a session:
// concurrently wait for an inbound frame, a pending newcomer
// notification, or the idle keepalive tick, until the connection dies.
//
// A single background goroutine drives the resumable Reader and feeds
// completed frames to frames; this is the one reader for the lifetime of
// the connection, so there is never a race between it and any other code
// reading s.conn. Each frame is either a Room join/create request, or —
// immediately following a successful join — a JSON array of ClientInfo
// naming peers the joiner failed to reach. Since frames carry
// no type tag, the dispatcher tracks this with pendingFeedback: the next
// frame after a join is interpreted as the unreachable-peer list rather
// than a new join attempt. This is a deliberate reading of the "MUST
// accept one inbound frame afterward" requirement that keeps every frame
// flowing through the same reader without a second, racing read.
func (s *Session) inRoomLoop(user proto.User) {
	notifyCh := make(chan proto.ClientInfo, notifyBacklog)
	frames := make(chan []byte)
	errs := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go s.readFrames(frames, errs, done)

	ticker := time.NewTicker(s.keepalive)
	defer ticker.Stop()

	var joinedRooms []uint32
	defer func() {
		for _, rid := range joinedRooms {
			if destroyed := s.rooms.Leave(rid, user.ID); destroyed {
				s.log.Debug().Uint32("room_id", rid).Msg("room destroyed: last member left")
			}
		}
	}()

	pendingFeedback := false
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if len(frame) == 0 {
				continue
			}
			if pendingFeedback {
				s.logUnreachablePeers(frame)
				pendingFeedback = false
				continue
			}
			var req proto.Room
			if err := proto.Unmarshal(frame, &req); err != nil {
				s.log.Debug().Msg("ignoring unrecognized payload in room loop")
				continue
			}
			if s.handleRoomJoin(user, req, notifyCh, &joinedRooms) {
				pendingFeedback = true
			}

		case info := <-notifyCh:
			data, err := proto.Marshal(info)
			if err != nil {
				continue
			}
			if err := wire.Write(s.conn, data); err != nil {
				return
			}

		case err := <-errs:
			s.log.Debug().Err(err).Msg("session read terminated")
			return

		case <-ticker.C:
			if err := wire.Write(s.conn, nil); err != nil {
				return
			}
		}
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

// handleRoomJoin runs the join/create protocol for one Room request and
// writes its result frames. It reports whether the join succeeded (the
// caller must then expect an unreachable-peer feedback frame next).
func (s *Session) handleRoomJoin(user proto.User, req proto.Room, notifyCh chan proto.ClientInfo, joined *[]uint32) bool {
	self := Member{ID: user.ID, Name: user.Name, Addr: s.remote, NotifyTx: notifyCh}
	room, snapshot, notifyTargets, created, err := s.rooms.JoinOrCreate(req.ID, req.Name, req.Passwd, self)
	if err != nil {
		if werr := wire.Write(s.conn, []byte("Fail to join room")); werr != nil {
			s.log.Debug().Err(werr).Msg("failed to write join rejection")
		}
		return false
	}

	if err := wire.Write(s.conn, []byte("OK")); err != nil {
		return false
	}
	roomData, err := proto.Marshal(room)
	if err != nil || wire.Write(s.conn, roomData) != nil {
		return false
	}
	snapData, err := proto.Marshal(snapshot)
	if err != nil || wire.Write(s.conn, snapData) != nil {
		return false
	}

	*joined = append(*joined, room.ID)
	s.log.Info().Uint32("room_id", room.ID).Bool("created", created).Msg("room joined")

	if !created {
		info := self.info()
		for _, target := range notifyTargets {
			select {
			case target <- info:
			default:
				s.log.Warn().Msg("member notify channel full, dropping join notification")
			}
		}
	}
	return true
}

func (s *Session) logUnreachablePeers(frame []byte) {
	var unreachable []proto.ClientInfo
	if err := proto.Unmarshal(frame, &unreachable); err != nil {
		s.log.Debug().Msg("ignoring malformed unreachable-peer report")
		return
	}
	if len(unreachable) == 0 {
		return
	}
	names := make([]string, 0, len(unreachable))
	for _, c := range unreachable {
		names = append(names, c.Name)
	}
	s.log.Warn().Strs("unreachable", names).Msg("peer reported unreachable mesh members")
}
