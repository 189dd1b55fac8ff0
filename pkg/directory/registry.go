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

// Package directory implements the rendezvous server: the user and room
// registries, the per-connection session state machine, and the
// join/create and fan-out logic described by the room-join protocol.
package directory

import (
	"errors"
	"sync"

	"github.com/meshroom/partyline/pkg/proto"
)

// ErrInvalidLogin is returned when a login attempt has an empty name or
// password.
var ErrInvalidLogin = errors.New("directory: name or password is empty")

// ErrUserExists is returned when a login name is already occupied by a
// live session.
var ErrUserExists = errors.New("directory: user already exists")

// ErrJoinRejected is returned when a room join's name/password does not
// match the room's stored values exactly.
var ErrJoinRejected = errors.New("directory: room name or password mismatch")

// UserRegistry is the process-wide users-by-id/by-name bijection. Ids are
// recycled: freed ids are reused before the registry scans upward from
// len(byID) for a fresh one. Id 0 is reserved for "unassigned".
type UserRegistry struct {
	mu      sync.Mutex
	byID    map[uint32]proto.User
	byName  map[string]uint32
	freeIDs []uint32
}

// NewUserRegistry returns an empty registry.
func NewUserRegistry() *UserRegistry {
	return &UserRegistry{
		byID:   make(map[uint32]proto.User),
		byName: make(map[string]uint32),
	}
}

// Insert allocates an id for (name, passwd) and registers it, or returns
// ErrInvalidLogin / ErrUserExists without mutating the registry.
func (r *UserRegistry) Insert(name, passwd string) (proto.User, error) {
	if name == "" || passwd == "" {
		return proto.User{}, ErrInvalidLogin
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return proto.User{}, ErrUserExists
	}

	id := r.nextID()
	u := proto.User{ID: id, Name: name, Passwd: passwd}
	r.byID[id] = u
	r.byName[name] = id
	return u, nil
}

// nextID must be called with mu held. Id 0 is reserved for "unassigned"
// and is never handed out.
func (r *UserRegistry) nextID() uint32 {
	if n := len(r.freeIDs); n > 0 {
		id := r.freeIDs[n-1]
		r.freeIDs = r.freeIDs[:n-1]
		return id
	}
	id := uint32(len(r.byID))
	if id == 0 {
		id = 1
	}
	for {
		if _, exists := r.byID[id]; !exists {
			return id
		}
		id++
	}
}

// Remove frees id back to the recycle pool. A no-op if id is unknown.
func (r *UserRegistry) Remove(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	delete(r.byName, u.Name)
	r.freeIDs = append(r.freeIDs, id)
}

// Snapshot returns a copy of every live user, for the server's "echo
// users" stdin command.
func (r *UserRegistry) Snapshot() []proto.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]proto.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u)
	}
	return out
}

// Member is the server's view of a user occupying a room: the identity
// the room publishes to other members, plus the channel used to push
// newcomer notifications to this member's session. Rooms never hold a
// reference to the session itself — only to this channel — so the
// notification graph can't form a reference cycle back through the
// registry.
type Member struct {
	ID       uint32
	Name     string
	Addr     string
	NotifyTx chan<- proto.ClientInfo
}

func (m Member) info() proto.ClientInfo {
	return proto.ClientInfo{ID: m.ID, Name: m.Name, Addr: m.Addr}
}

type roomEntry struct {
	id      uint32
	name    string
	passwd  string
	members map[uint32]Member
}

// RoomRegistry is the process-wide rooms-by-id/by-name bijection, with
// the same id-recycling rule as UserRegistry.
type RoomRegistry struct {
	mu      sync.Mutex
	byID    map[uint32]*roomEntry
	byName  map[string]uint32
	freeIDs []uint32
}

// NewRoomRegistry returns an empty registry.
func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		byID:   make(map[uint32]*roomEntry),
		byName: make(map[string]uint32),
	}
}

// JoinOrCreate runs the room join/create procedure for one member. If
// reqID is nonzero and names an existing room, that room is
// the join target; otherwise if reqName names an existing room, that is
// the target (reqID is rewritten to the room's real id); otherwise a new
// room is created with self as its sole occupant.
//
// On an existing-room target, name and passwd must match exactly or the
// join is rejected (ErrJoinRejected) without mutating any state. On
// success, self is already recorded in the room's member map by the time
// this call returns (while the registry lock is held): the snapshot
// returned here and the notify channels returned for fan-out together
// describe a single consistent mesh, never a partial or racing view.
//
// snapshot excludes self. notify holds the pre-existing members' channels
// to push self's ClientInfo onto (created rooms return a nil slice: there
// is no one to notify).
func (rr *RoomRegistry) JoinOrCreate(reqID uint32, name, passwd string, self Member) (room proto.Room, snapshot []proto.ClientInfo, notify []chan<- proto.ClientInfo, created bool, err error) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	var target *roomEntry
	if reqID != 0 {
		target = rr.byID[reqID]
	}
	if target == nil {
		if rid, ok := rr.byName[name]; ok {
			target = rr.byID[rid]
		}
	}

	if target != nil {
		if target.name != name || target.passwd != passwd {
			return proto.Room{}, nil, nil, false, ErrJoinRejected
		}

		snapshot = make([]proto.ClientInfo, 0, len(target.members))
		notify = make([]chan<- proto.ClientInfo, 0, len(target.members))
		for _, m := range target.members {
			snapshot = append(snapshot, m.info())
			notify = append(notify, m.NotifyTx)
		}
		target.members[self.ID] = self

		room = proto.Room{ID: target.id, Name: target.name, Passwd: target.passwd}
		return room, snapshot, notify, false, nil
	}

	id := rr.nextID()
	entry := &roomEntry{
		id:      id,
		name:    name,
		passwd:  passwd,
		members: map[uint32]Member{self.ID: self},
	}
	rr.byID[id] = entry
	rr.byName[name] = id

	room = proto.Room{ID: id, Name: name, Passwd: passwd}
	return room, []proto.ClientInfo{}, nil, true, nil
}

// nextID must be called with mu held. Id 0 is reserved for "unassigned"
// and is never handed out.
func (rr *RoomRegistry) nextID() uint32 {
	if n := len(rr.freeIDs); n > 0 {
		id := rr.freeIDs[n-1]
		rr.freeIDs = rr.freeIDs[:n-1]
		return id
	}
	id := uint32(len(rr.byID))
	if id == 0 {
		id = 1
	}
	for {
		if _, exists := rr.byID[id]; !exists {
			return id
		}
		id++
	}
}

// Leave removes userID from roomID's member map. If the room becomes
// empty it is destroyed and its id recycled; Leave reports whether that
// happened. A no-op (returns false) if roomID is unknown.
func (rr *RoomRegistry) Leave(roomID, userID uint32) (destroyed bool) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	r, ok := rr.byID[roomID]
	if !ok {
		return false
	}
	delete(r.members, userID)
	if len(r.members) > 0 {
		return false
	}
	delete(rr.byID, roomID)
	delete(rr.byName, r.name)
	rr.freeIDs = append(rr.freeIDs, roomID)
	return true
}

// roomSnapshot is the shape printed by the server's "echo rooms" stdin
// command.
type roomSnapshot struct {
	ID      uint32
	Name    string
	Members []string
}

// Snapshot returns a per-room dump of ids, names, and member names, for
// the "echo rooms" stdin command.
func (rr *RoomRegistry) Snapshot() []roomSnapshot {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	out := make([]roomSnapshot, 0, len(rr.byID))
	for _, r := range rr.byID {
		names := make([]string, 0, len(r.members))
		for _, m := range r.members {
			names = append(names, m.Name)
		}
		out = append(out, roomSnapshot{ID: r.id, Name: r.name, Members: names})
	}
	return out
}
