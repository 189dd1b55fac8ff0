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
	"math/rand"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

// defaultMinPort/defaultMaxPort bound the boot port window: a client picks
// a random local port in [4000, 9000) to dial and optionally listen from.
const (
	defaultMinPort = 4000
	defaultMaxPort = 8999
)

var portRangeMatcher = regexp.MustCompile(`^([0-9]{1,5})-([0-9]{1,5})$`)

// PortRange is a bootable local-port window, e.g. parsed from a
// "--port-range=4000-9000" flag.
type PortRange struct {
	Min int
	Max int
}

// DefaultPortRange is [4000, 9000), the default boot port window.
func DefaultPortRange() PortRange {
	return PortRange{Min: defaultMinPort, Max: defaultMaxPort}
}

// ParsePortRange parses "min-max" into a PortRange, adapted from
// kcptun's multi-port address parser for a standalone port window
// instead of a "host:min-max" listen address.
func ParsePortRange(s string) (PortRange, error) {
	matches := portRangeMatcher.FindStringSubmatch(s)
	if matches == nil {
		return PortRange{}, errors.Errorf("malformed port range: %v", s)
	}
	minPort, err := strconv.Atoi(matches[1])
	if err != nil {
		return PortRange{}, err
	}
	maxPort, err := strconv.Atoi(matches[2])
	if err != nil {
		return PortRange{}, err
	}
	if minPort > maxPort || minPort == 0 || maxPort > 65535 {
		return PortRange{}, errors.Errorf("invalid port range: %d-%d", minPort, maxPort)
	}
	return PortRange{Min: minPort, Max: maxPort}, nil
}

// Pick returns a random port within the range, inclusive.
func (r PortRange) Pick() int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rand.Intn(r.Max-r.Min+1)
}
