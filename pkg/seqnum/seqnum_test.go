package seqnum

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsAdjacent(t *testing.T) {
	for _, ca := range []struct {
		name string
		a    uint16
		b    uint16
		res  bool
	}{
		{"next", 10, 11, true},
		{"wraparound", 65535, 0, true},
		{"same", 10, 10, false},
		{"previous", 11, 10, false},
		{"gap", 10, 12, false},
		{"reverse wraparound", 0, 65535, false},
	} {
		t.Run(ca.name, func(t *testing.T) {
			require.Equal(t, ca.res, IsAdjacent(ca.a, ca.b))
		})
	}
}

func TestIsGreater(t *testing.T) {
	for _, ca := range []struct {
		name string
		a    uint16
		b    uint16
		res  bool
	}{
		{"greater", 11, 10, true},
		{"smaller", 10, 11, false},
		{"equal", 10, 10, false},
		{"wraparound", 0, 65535, true},
		{"wraparound reverse", 65535, 0, false},
		{"far wraparound", 100, 65000, true},
		{"just below half", 32767, 0, true},
		{"half", 32768, 0, false},
		{"half reverse", 0, 32768, false},
		{"just above half", 0, 32769, true},
	} {
		t.Run(ca.name, func(t *testing.T) {
			require.Equal(t, ca.res, IsGreater(ca.a, ca.b))
		})
	}
}

func TestIsGreaterAntisymmetric(t *testing.T) {
	for _, a := range []uint16{0, 1, 100, 32767, 32768, 40000, 65535} {
		for _, b := range []uint16{0, 2, 99, 32768, 50000, 65534} {
			require.False(t, IsGreater(a, b) && IsGreater(b, a), "%d %d", a, b)
		}
	}
}

func TestDistance(t *testing.T) {
	require.Equal(t, 1, Distance(10, 11))
	require.Equal(t, -1, Distance(11, 10))
	require.Equal(t, 2, Distance(65535, 1))
	require.Equal(t, -2, Distance(1, 65535))
	require.Equal(t, 0, Distance(5, 5))
}
