package peer

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/meshroom/partyline/pkg/proto"
	"github.com/meshroom/partyline/pkg/wire"
)

func TestSessionDeliversChatAndIgnoresHeartbeats(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	sink := make(chan Event, 8)
	input := NewBroadcast()
	peerInfo := proto.ClientInfo{ID: 5, Name: "carol", Addr: "10.0.0.5:4005"}
	sess := NewSession(local, peerInfo, sink, input, time.Hour, zerolog.Nop())

	go sess.Run()

	if err := wire.Write(remote, nil); err != nil { // heartbeat, should be ignored
		t.Fatalf("write heartbeat: %v", err)
	}
	if err := wire.Write(remote, []byte("hello room")); err != nil {
		t.Fatalf("write chat: %v", err)
	}

	select {
	case ev := <-sink:
		chat, ok := ev.(ChatEvent)
		if !ok {
			t.Fatalf("got %T, want ChatEvent", ev)
		}
		if chat.Text != "hello room" || chat.From.ID != peerInfo.ID {
			t.Fatalf("unexpected chat event: %+v", chat)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for chat event")
	}

	remote.Close()
	select {
	case ev := <-sink:
		if _, ok := ev.(DisconnectEvent); !ok {
			t.Fatalf("got %T, want DisconnectEvent", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for disconnect event")
	}
}

func TestSessionFansOutLocalInput(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	sink := make(chan Event, 8)
	input := NewBroadcast()
	peerInfo := proto.ClientInfo{ID: 9, Name: "dave", Addr: "10.0.0.9:4009"}
	sess := NewSession(local, peerInfo, sink, input, time.Hour, zerolog.Nop())

	go sess.Run()

	// Run subscribes to input from its own goroutine, and a line published
	// before that subscription is not delivered, so keep publishing until
	// the session has picked one up.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				input.Publish("typed line")
				time.Sleep(10 * time.Millisecond)
			}
		}
	}()

	frame, err := wire.Read(remote)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(frame) != "typed line" {
		t.Fatalf("got %q, want %q", frame, "typed line")
	}
}

func TestSessionSendsHeartbeatOnTicker(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	sink := make(chan Event, 8)
	input := NewBroadcast()
	peerInfo := proto.ClientInfo{ID: 3, Name: "erin", Addr: "10.0.0.3:4003"}
	sess := NewSession(local, peerInfo, sink, input, 20*time.Millisecond, zerolog.Nop())

	go sess.Run()

	frame, err := wire.Read(remote)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(frame) != 0 {
		t.Fatalf("got %d-byte frame, want heartbeat", len(frame))
	}
}
