package peer

import "testing"

func TestParsePortRange(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
		min     int
		max     int
	}{
		{"4000-9000", false, 4000, 9000},
		{"5566-5566", false, 5566, 5566},
		{"9000-4000", true, 0, 0},
		{"not-a-range", true, 0, 0},
		{"0-100", true, 0, 0},
	}
	for _, tc := range cases {
		got, err := ParsePortRange(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParsePortRange(%q) = %+v, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParsePortRange(%q): %v", tc.in, err)
		}
		if got.Min != tc.min || got.Max != tc.max {
			t.Fatalf("ParsePortRange(%q) = %+v, want {%d %d}", tc.in, got, tc.min, tc.max)
		}
	}
}

func TestPortRangePickWithinBounds(t *testing.T) {
	r := PortRange{Min: 4000, Max: 4005}
	for i := 0; i < 50; i++ {
		p := r.Pick()
		if p < r.Min || p > r.Max {
			t.Fatalf("Pick() = %d, out of range [%d,%d]", p, r.Min, r.Max)
		}
	}
}

func TestPortRangePickSinglePort(t *testing.T) {
	r := PortRange{Min: 5566, Max: 5566}
	if got := r.Pick(); got != 5566 {
		t.Fatalf("Pick() = %d, want 5566", got)
	}
}
