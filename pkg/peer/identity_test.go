package peer

import (
	"net"
	"testing"

	"github.com/meshroom/partyline/pkg/proto"
)

func TestSwapIdentityBothSidesExchange(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	alice := proto.BaseUserInfo{ID: 1, Name: "alice"}
	bob := proto.BaseUserInfo{ID: 2, Name: "bob"}

	type result struct {
		info proto.ClientInfo
		err  error
	}
	aliceDone := make(chan result, 1)
	bobDone := make(chan result, 1)

	go func() {
		info, err := swapIdentity(a, alice, "10.0.0.1:4001")
		aliceDone <- result{info, err}
	}()
	go func() {
		info, err := acceptIdentity(b, bob, "10.0.0.2:4002")
		bobDone <- result{info, err}
	}()

	ar := <-aliceDone
	br := <-bobDone
	if ar.err != nil {
		t.Fatalf("swapIdentity: %v", ar.err)
	}
	if br.err != nil {
		t.Fatalf("acceptIdentity: %v", br.err)
	}
	if ar.info.ID != bob.ID || ar.info.Name != bob.Name || ar.info.Addr != "10.0.0.2:4002" {
		t.Fatalf("alice's view of bob = %+v", ar.info)
	}
	if br.info.ID != alice.ID || br.info.Name != alice.Name || br.info.Addr != "10.0.0.1:4001" {
		t.Fatalf("bob's view of alice = %+v", br.info)
	}
}
