// Package liberrors contains errors returned by the library.
package liberrors

import (
	"fmt"
)

// ErrMalformedPayload is returned when a payload is too short or
// carries an invalid descriptor.
type ErrMalformedPayload struct {
	Reason string
}

// Error implements the error interface.
func (e ErrMalformedPayload) Error() string {
	return "malformed payload: " + e.Reason
}

// ErrMalformedAggregation is returned when the declared size of an aggregated unit
// exceeds the remaining payload.
type ErrMalformedAggregation struct {
	Declared  int
	Remaining int
}

// Error implements the error interface.
func (e ErrMalformedAggregation) Error() string {
	return fmt.Sprintf("invalid aggregation unit (declared size %d, remaining %d)",
		e.Declared, e.Remaining)
}

// ErrUnsupportedPacketization is returned when a packetization type is not supported.
type ErrUnsupportedPacketization struct {
	Codec string
	Type  int
}

// Error implements the error interface.
func (e ErrUnsupportedPacketization) Error() string {
	return fmt.Sprintf("%s: packet type not supported (%v)", e.Codec, e.Type)
}

// ErrInconsistentAUHeader is returned when the length of the AU header section
// does not match the configured header sizes.
type ErrInconsistentAUHeader struct {
	Length     int
	HeaderSize int
}

// Error implements the error interface.
func (e ErrInconsistentAUHeader) Error() string {
	return fmt.Sprintf("AU-headers-length %d is not a multiple of header size %d",
		e.Length, e.HeaderSize)
}

// ErrFragmentWithoutStart is returned when a continuation fragment is received
// without the corresponding starting fragment.
type ErrFragmentWithoutStart struct{}

// Error implements the error interface.
func (e ErrFragmentWithoutStart) Error() string {
	return "received a non-starting fragment without any previous starting fragment"
}

// ErrIncompleteFragment is returned when a packet group ends in the middle of a fragment.
type ErrIncompleteFragment struct{}

// Error implements the error interface.
func (e ErrIncompleteFragment) Error() string {
	return "packet group ended in the middle of a fragmented unit"
}
