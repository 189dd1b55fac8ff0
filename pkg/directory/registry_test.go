package directory

import (
	"errors"
	"testing"

	"github.com/meshroom/partyline/pkg/proto"
)

func TestUserRegistryBijectionAndIdUniqueness(t *testing.T) {
	ur := NewUserRegistry()

	a, err := ur.Insert("alice", "pw")
	if err != nil {
		t.Fatalf("Insert(alice): %v", err)
	}
	b, err := ur.Insert("bob", "pw")
	if err != nil {
		t.Fatalf("Insert(bob): %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("alice and bob got the same id %d", a.ID)
	}
	if a.ID == 0 || b.ID == 0 {
		t.Fatalf("id 0 must stay reserved: a=%d b=%d", a.ID, b.ID)
	}
}

func TestUserRegistryRejectsDuplicateName(t *testing.T) {
	ur := NewUserRegistry()
	if _, err := ur.Insert("alice", "pw"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := ur.Insert("alice", "other"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("Insert(duplicate) = %v, want ErrUserExists", err)
	}
}

func TestUserRegistryRejectsEmptyCredentials(t *testing.T) {
	ur := NewUserRegistry()
	if _, err := ur.Insert("", "pw"); !errors.Is(err, ErrInvalidLogin) {
		t.Fatalf("Insert(empty name) = %v, want ErrInvalidLogin", err)
	}
	if _, err := ur.Insert("alice", ""); !errors.Is(err, ErrInvalidLogin) {
		t.Fatalf("Insert(empty passwd) = %v, want ErrInvalidLogin", err)
	}
}

func TestUserRegistryRecyclesIds(t *testing.T) {
	ur := NewUserRegistry()
	a, _ := ur.Insert("alice", "pw")
	ur.Remove(a.ID)
	b, err := ur.Insert("bob", "pw")
	if err != nil {
		t.Fatalf("Insert(bob): %v", err)
	}
	if b.ID != a.ID {
		t.Fatalf("expected recycled id %d, got %d", a.ID, b.ID)
	}
}

func TestRoomRegistryCreateThenJoin(t *testing.T) {
	rr := NewRoomRegistry()

	notifyA := make(chan proto.ClientInfo, 1)
	memberA := Member{ID: 1, Name: "a", Addr: "10.0.0.1:4001", NotifyTx: notifyA}

	room, snapshot, notify, created, err := rr.JoinOrCreate(0, "R", "p", memberA)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created {
		t.Fatal("expected a fresh room to be created")
	}
	if len(snapshot) != 0 || notify != nil {
		t.Fatalf("create should have no snapshot/notify, got snapshot=%v notify=%v", snapshot, notify)
	}
	if room.Name != "R" || room.Passwd != "p" {
		t.Fatalf("unexpected room: %+v", room)
	}

	notifyB := make(chan proto.ClientInfo, 1)
	memberB := Member{ID: 2, Name: "b", Addr: "10.0.0.2:4002", NotifyTx: notifyB}

	room2, snapshot2, notify2, created2, err := rr.JoinOrCreate(room.ID, "R", "p", memberB)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if created2 {
		t.Fatal("expected join, not create, on the second member")
	}
	if room2.ID != room.ID {
		t.Fatalf("join resolved to a different room: %d vs %d", room2.ID, room.ID)
	}
	if len(snapshot2) != 1 || snapshot2[0].ID != memberA.ID {
		t.Fatalf("unexpected join snapshot: %+v", snapshot2)
	}
	if len(notify2) != 1 {
		t.Fatalf("expected exactly one notify target, got %d", len(notify2))
	}
	select {
	case notify2[0] <- proto.ClientInfo{ID: memberB.ID, Name: memberB.Name, Addr: memberB.Addr}:
	default:
		t.Fatal("notify channel unexpectedly full")
	}
	got := <-notifyA
	if got.ID != memberB.ID {
		t.Fatalf("member A notified of wrong peer: %+v", got)
	}
}

func TestRoomRegistryJoinByNameRewritesId(t *testing.T) {
	rr := NewRoomRegistry()
	memberA := Member{ID: 1, Name: "a", Addr: "10.0.0.1:4001", NotifyTx: make(chan proto.ClientInfo, 1)}
	room, _, _, _, err := rr.JoinOrCreate(0, "R", "p", memberA)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	memberB := Member{ID: 2, Name: "b", Addr: "10.0.0.2:4002", NotifyTx: make(chan proto.ClientInfo, 1)}
	room2, _, _, _, err := rr.JoinOrCreate(999, "R", "p", memberB) // wrong id, right name
	if err != nil {
		t.Fatalf("join by name: %v", err)
	}
	if room2.ID != room.ID {
		t.Fatalf("expected id rewritten to %d, got %d", room.ID, room2.ID)
	}
}

func TestRoomRegistryRejectsPasswordMismatch(t *testing.T) {
	rr := NewRoomRegistry()
	memberA := Member{ID: 1, Name: "a", Addr: "10.0.0.1:4001", NotifyTx: make(chan proto.ClientInfo, 1)}
	room, _, _, _, err := rr.JoinOrCreate(0, "R", "correct", memberA)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	memberB := Member{ID: 2, Name: "b", Addr: "10.0.0.2:4002", NotifyTx: make(chan proto.ClientInfo, 1)}
	_, _, _, _, err = rr.JoinOrCreate(room.ID, "R", "wrong", memberB)
	if !errors.Is(err, ErrJoinRejected) {
		t.Fatalf("JoinOrCreate(wrong passwd) = %v, want ErrJoinRejected", err)
	}

	snap := rr.Snapshot()
	if len(snap) != 1 || len(snap[0].Members) != 1 {
		t.Fatalf("registry state changed after rejected join: %+v", snap)
	}
}

func TestRoomRegistryLastMemberDepartureDestroysRoom(t *testing.T) {
	rr := NewRoomRegistry()
	memberA := Member{ID: 1, Name: "a", Addr: "10.0.0.1:4001", NotifyTx: make(chan proto.ClientInfo, 1)}
	room, _, _, _, err := rr.JoinOrCreate(0, "R", "p", memberA)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if destroyed := rr.Leave(room.ID, memberA.ID); !destroyed {
		t.Fatal("expected room to be destroyed when its last member leaves")
	}

	memberB := Member{ID: 2, Name: "b", Addr: "10.0.0.2:4002", NotifyTx: make(chan proto.ClientInfo, 1)}
	room2, _, _, created, err := rr.JoinOrCreate(0, "S", "q", memberB)
	if err != nil {
		t.Fatalf("create second room: %v", err)
	}
	if !created {
		t.Fatal("expected a fresh room")
	}
	if room2.ID != room.ID {
		t.Fatalf("expected recycled room id %d, got %d", room.ID, room2.ID)
	}
}
