// Package seqnum contains functions to compare RTP sequence numbers,
// taking wraparound into account.
package seqnum

const (
	half = 1 << 15
)

// IsAdjacent checks whether b immediately follows a.
func IsAdjacent(a uint16, b uint16) bool {
	return b == a+1
}

// IsGreater checks whether a comes after b in the circular sequence space.
// Two numbers exactly half the space apart are not ordered.
func IsGreater(a uint16, b uint16) bool {
	return (a > b && a-b < half) || (a < b && b-a > half)
}

// Distance returns the signed number of steps needed to go from a to b.
func Distance(a uint16, b uint16) int {
	return int(int16(b - a))
}
