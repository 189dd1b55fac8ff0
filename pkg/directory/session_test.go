package directory

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/meshroom/partyline/pkg/proto"
	"github.com/meshroom/partyline/pkg/wire"
)

func TestSessionLoginAndRoomJoin(t *testing.T) {
	local, remote := net.Pipe()
	users := NewUserRegistry()
	rooms := NewRoomRegistry()
	sess := NewSession(local, users, rooms, zerolog.Nop(), time.Hour)

	done := make(chan struct{})
	go func() {
		sess.Serve()
		close(done)
	}()
	defer func() {
		remote.Close()
		<-done
	}()

	loginData, _ := proto.Marshal(proto.User{Name: "alice", Passwd: "pw"})
	if err := wire.Write(remote, loginData); err != nil {
		t.Fatalf("write login: %v", err)
	}

	status, err := wire.Read(remote)
	if err != nil {
		t.Fatalf("read login status: %v", err)
	}
	if string(status) != "OK" {
		t.Fatalf("login status = %q, want OK", status)
	}

	idFrame, err := wire.Read(remote)
	if err != nil {
		t.Fatalf("read BaseUserInfo: %v", err)
	}
	var info proto.BaseUserInfo
	if err := proto.Unmarshal(idFrame, &info); err != nil {
		t.Fatalf("unmarshal BaseUserInfo: %v", err)
	}
	if info.Name != "alice" || info.ID == 0 {
		t.Fatalf("unexpected assigned identity: %+v", info)
	}

	roomData, _ := proto.Marshal(proto.Room{Name: "R", Passwd: "p"})
	if err := wire.Write(remote, roomData); err != nil {
		t.Fatalf("write room join: %v", err)
	}

	joinStatus, err := wire.Read(remote)
	if err != nil {
		t.Fatalf("read join status: %v", err)
	}
	if string(joinStatus) != "OK" {
		t.Fatalf("join status = %q, want OK", joinStatus)
	}

	roomFrame, err := wire.Read(remote)
	if err != nil {
		t.Fatalf("read Room echo: %v", err)
	}
	var room proto.Room
	if err := proto.Unmarshal(roomFrame, &room); err != nil {
		t.Fatalf("unmarshal Room: %v", err)
	}
	if room.Name != "R" || room.ID == 0 {
		t.Fatalf("unexpected room echo: %+v", room)
	}

	snapFrame, err := wire.Read(remote)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var snapshot []proto.ClientInfo
	if err := proto.Unmarshal(snapFrame, &snapshot); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if len(snapshot) != 0 {
		t.Fatalf("expected empty snapshot for a freshly created room, got %+v", snapshot)
	}

	feedback, _ := proto.Marshal([]proto.ClientInfo{})
	if err := wire.Write(remote, feedback); err != nil {
		t.Fatalf("write unreachable-peer feedback: %v", err)
	}
}

func TestSessionRejectsDuplicateLoginName(t *testing.T) {
	local, remote := net.Pipe()
	users := NewUserRegistry()
	rooms := NewRoomRegistry()
	if _, err := users.Insert("alice", "pw"); err != nil {
		t.Fatalf("seed Insert: %v", err)
	}
	sess := NewSession(local, users, rooms, zerolog.Nop(), time.Hour)

	done := make(chan struct{})
	go func() {
		sess.Serve()
		close(done)
	}()
	defer func() {
		remote.Close()
		<-done
	}()

	loginData, _ := proto.Marshal(proto.User{Name: "alice", Passwd: "pw"})
	if err := wire.Write(remote, loginData); err != nil {
		t.Fatalf("write login: %v", err)
	}

	status, err := wire.Read(remote)
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	if string(status) != "User already exists" {
		t.Fatalf("status = %q, want %q", status, "User already exists")
	}
}
