package liberrors

import (
	"fmt"
)

// ErrUnsupportedConfiguration is returned when a negotiated configuration cannot be handled.
type ErrUnsupportedConfiguration struct {
	Codec  string
	Reason string
}

// Error implements the error interface.
func (e ErrUnsupportedConfiguration) Error() string {
	return fmt.Sprintf("unsupported %s configuration: %s", e.Codec, e.Reason)
}

// ErrBufferFull is returned when a reorder buffer reaches its maximum size.
type ErrBufferFull struct {
	Size int
}

// Error implements the error interface.
func (e ErrBufferFull) Error() string {
	return fmt.Sprintf("reorder buffer is full (%d packets)", e.Size)
}
