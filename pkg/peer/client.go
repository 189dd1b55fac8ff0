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

// Package peer implements the client half of partyline: boot (reuse-port
// dial plus optional listen on the same endpoint), the control-channel
// dialogs (login, room join), the two-phase peer establishment
// (mass-connect then incremental connect on server pushes), and the
// per-peer session task.
package peer

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/meshroom/partyline/pkg/proto"
	"github.com/meshroom/partyline/pkg/wire"
)

// BootConfig configures Boot.
type BootConfig struct {
	ServerAddr       string
	Ports            PortRange
	Listen           bool
	DialTimeout      time.Duration
	ControlHeartbeat time.Duration
	PeerHeartbeat    time.Duration
}

// Client is the running control session plus the peer mesh it manages.
type Client struct {
	cfg       BootConfig
	conn      net.Conn
	writeMu   sync.Mutex // serializes control-channel writes: MassConnect's feedback frame and Run's heartbeat both write c.conn from different goroutines
	localAddr string
	ln        net.Listener

	self proto.BaseUserInfo
	room proto.Room

	sink  chan Event
	input *Broadcast

	mu    sync.Mutex
	peers map[uint32]struct{}

	log zerolog.Logger
}

// Boot picks a random local port from cfg.Ports, dials the server from
// that exact endpoint with SO_REUSEADDR/SO_REUSEPORT set, and, when
// cfg.Listen is set, also listens on it for inbound peer connections
// (best-effort: a listen failure is logged and Boot still succeeds).
func Boot(cfg BootConfig, log zerolog.Logger) (*Client, error) {
	port := cfg.Ports.Pick()
	local := fmt.Sprintf("0.0.0.0:%d", port)

	conn, err := dialFromReuse(local, cfg.ServerAddr, cfg.DialTimeout)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:       cfg,
		conn:      conn,
		localAddr: local,
		sink:      make(chan Event, 256),
		input:     NewBroadcast(),
		peers:     make(map[uint32]struct{}),
		log:       log,
	}

	if cfg.Listen {
		ln, lerr := listenReuse(local)
		if lerr != nil {
			c.log.Warn().Err(lerr).Msg("could not open inbound peer listener; relying on server-directed dials only")
		} else {
			c.ln = ln
			go c.acceptPeers()
		}
	}

	return c, nil
}

// Sink is the many-producer, single-consumer event channel every peer
// session (and the control session itself) writes UI-facing events to.
func (c *Client) Sink() <-chan Event { return c.sink }

// Input is the process-wide local-input broadcast source: publish a
// typed line here and every peer session fans it out on its write side.
func (c *Client) Input() *Broadcast { return c.input }

// Self returns the server-assigned identity, valid after Login.
func (c *Client) Self() proto.BaseUserInfo { return c.self }

// writeControl serializes every write to the control socket: Login,
// JoinRoom, the mass-connect feedback frame, and Run's heartbeat tick
// all write from different goroutines, and two concurrent wire.Write
// calls on the same connection would interleave their header/body
// writes into a corrupted frame stream.
func (c *Client) writeControl(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wire.Write(c.conn, payload)
}

// Close tears down the control connection, the inbound listener (if
// any), and every subscribed peer session.
func (c *Client) Close() {
	c.input.Close()
	c.conn.Close()
	if c.ln != nil {
		c.ln.Close()
	}
}

// Login runs the login dialog, the first step of the control channel
// lifecycle: send a User frame and expect "OK" (matched as a
// case-insensitive substring, per the ASCII-status contract) followed by
// the server-assigned BaseUserInfo. A rejection returns its status text
// as an error so the caller can re-prompt.
func (c *Client) Login(name, passwd string) error {
	data, err := proto.Marshal(proto.User{Name: name, Passwd: passwd})
	if err != nil {
		return err
	}
	if err := c.writeControl(data); err != nil {
		return err
	}

	reply, err := wire.Read(c.conn)
	if err != nil {
		return err
	}
	if !isOK(reply) {
		return fmt.Errorf("%s", reply)
	}

	frame, err := wire.Read(c.conn)
	if err != nil {
		return err
	}
	var info proto.BaseUserInfo
	if err := proto.Unmarshal(frame, &info); err != nil {
		return err
	}
	c.self = info
	return nil
}

// JoinRoom runs the room dialog (lifecycle steps 2-3): send a Room
// frame, expect "OK", the echoed Room, then the member snapshot (which
// may be empty).
func (c *Client) JoinRoom(id uint32, name, passwd string) ([]proto.ClientInfo, error) {
	data, err := proto.Marshal(proto.Room{ID: id, Name: name, Passwd: passwd})
	if err != nil {
		return nil, err
	}
	if err := c.writeControl(data); err != nil {
		return nil, err
	}

	reply, err := wire.Read(c.conn)
	if err != nil {
		return nil, err
	}
	if !isOK(reply) {
		return nil, fmt.Errorf("%s", reply)
	}

	roomFrame, err := wire.Read(c.conn)
	if err != nil {
		return nil, err
	}
	var room proto.Room
	if err := proto.Unmarshal(roomFrame, &room); err != nil {
		return nil, err
	}
	c.room = room

	snapFrame, err := wire.Read(c.conn)
	if err != nil {
		return nil, err
	}
	var snapshot []proto.ClientInfo
	if len(snapFrame) > 0 {
		if err := proto.Unmarshal(snapFrame, &snapshot); err != nil {
			return nil, err
		}
	}
	return snapshot, nil
}

// MassConnect runs the mass-connect phase: dial every member of
// snapshot in parallel, identity-swap, and spawn a Session for each
// success. It logs every member it failed to reach and sends the
// ClientInfo list of those members back to the server; it returns
// nothing to the caller.
func (c *Client) MassConnect(snapshot []proto.ClientInfo) {
	if len(snapshot) == 0 {
		c.sendFeedback(nil)
		return
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed []proto.ClientInfo

	for _, member := range snapshot {
		member := member
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.connectPeer(member); err != nil {
				c.log.Warn().Uint32("peer_id", member.ID).Err(err).Msg("mass-connect failed")
				mu.Lock()
				failed = append(failed, member)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	c.sendFeedback(failed)
}

func (c *Client) sendFeedback(failed []proto.ClientInfo) {
	if failed == nil {
		failed = []proto.ClientInfo{}
	}
	data, err := proto.Marshal(failed)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to marshal unreachable-peer feedback")
		return
	}
	if err := c.writeControl(data); err != nil {
		c.log.Warn().Err(err).Msg("failed to send unreachable-peer feedback")
	}
}

// connectPeer dials, identity-swaps, and spawns a session for one
// member. Used both by MassConnect and by the steady-state incremental
// connect path.
func (c *Client) connectPeer(member proto.ClientInfo) error {
	if !c.claim(member.ID) {
		return nil // already connected (or connecting) to this peer
	}

	conn, err := dialFromReuse(c.localAddr, member.Addr, c.cfg.DialTimeout)
	if err != nil {
		c.release(member.ID)
		return err
	}

	peerInfo, err := swapIdentity(conn, c.self, member.Addr)
	if err != nil {
		conn.Close()
		c.release(member.ID)
		return err
	}

	sess := NewSession(conn, peerInfo, c.sink, c.input, c.cfg.PeerHeartbeat, c.log)
	go func() {
		defer c.release(member.ID)
		sess.Run()
	}()
	return nil
}

func (c *Client) claim(id uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.peers[id]; ok {
		return false
	}
	c.peers[id] = struct{}{}
	return true
}

func (c *Client) release(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.peers, id)
}

// acceptPeers serves the optional inbound listener: for each accepted
// socket, run the accept-side identity swap and spawn a session.
func (c *Client) acceptPeers() {
	for {
		conn, err := c.ln.Accept()
		if err != nil {
			return
		}
		go func() {
			addr := conn.RemoteAddr().String()
			peerInfo, err := acceptIdentity(conn, c.self, addr)
			if err != nil {
				c.log.Debug().Err(err).Msg("inbound identity swap failed")
				conn.Close()
				return
			}
			if !c.claim(peerInfo.ID) {
				conn.Close()
				return
			}
			sess := NewSession(conn, peerInfo, c.sink, c.input, c.cfg.PeerHeartbeat, c.log)
			defer c.release(peerInfo.ID)
			sess.Run()
		}()
	}
}

// Run is the steady-state loop, the final step of the control channel
// lifecycle: read the control socket for server-pushed join
// notifications and dial each one incrementally, while sending a
// periodic control heartbeat. It returns when the control connection
// dies.
func (c *Client) Run() {
	frames := make(chan []byte)
	errs := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go c.readControl(frames, errs, done)

	ticker := time.NewTicker(c.cfg.ControlHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if len(frame) == 0 {
				continue
			}
			var info proto.ClientInfo
			if err := proto.Unmarshal(frame, &info); err != nil {
				c.log.Debug().Msg("ignoring malformed join notification")
				continue
			}
			select {
			case c.sink <- JoinedEvent{Peer: info}:
			default:
			}
			go func() {
				if err := c.connectPeer(info); err != nil {
					c.log.Warn().Uint32("peer_id", info.ID).Err(err).Msg("incremental connect failed")
				}
			}()

		case err := <-errs:
			c.log.Info().Err(err).Msg("control session terminated")
			return

		case <-ticker.C:
			if err := c.writeControl(nil); err != nil {
				c.log.Info().Err(err).Msg("control heartbeat failed")
				return
			}
		}
	}
}

func (c *Client) readControl(frames chan<- []byte, errs chan<- error, done <-chan struct{}) {
	r := wire.NewReader()
	for {
		status, err := r.Poll(c.conn)
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

// isOK implements the ASCII-status contract: "OK" appearing anywhere in
// the payload, case-insensitive, means success.
func isOK(payload []byte) bool {
	return strings.Contains(strings.ToUpper(string(payload)), "OK")
}
