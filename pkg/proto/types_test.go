package proto

import "testing"

func TestClientInfoRoundTrip(t *testing.T) {
	ci := ClientInfo{ID: 7, Name: "fox", Addr: "10.0.0.5:4321"}
	data, err := Marshal(ci)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got ClientInfo
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != ci {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, ci)
	}
}

func TestClientInfoSliceRoundTrip(t *testing.T) {
	members := []ClientInfo{
		{ID: 1, Name: "a", Addr: "127.0.0.1:4001"},
		{ID: 2, Name: "b", Addr: "127.0.0.1:4002"},
	}
	data, err := Marshal(members)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got []ClientInfo
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got) != len(members) {
		t.Fatalf("got %d members, want %d", len(got), len(members))
	}
	for i := range members {
		if got[i] != members[i] {
			t.Fatalf("member %d mismatch: got %+v, want %+v", i, got[i], members[i])
		}
	}
}

func TestEmptyClientInfoSliceRoundTrip(t *testing.T) {
	data, err := Marshal([]ClientInfo{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("Marshal(empty) = %q, want []", data)
	}
}
