package format

// StartProbe is the result of inspecting the first buffered packet of a stream.
type StartProbe int

// start probe results.
const (
	// StartUndetermined means the packet carries no discriminating pattern.
	StartUndetermined StartProbe = iota

	// StartConfirmed means the packet begins an access unit.
	StartConfirmed

	// StartRejected means the packet is in the middle of an access unit.
	StartRejected
)

// String implements fmt.Stringer.
func (p StartProbe) String() string {
	switch p {
	case StartConfirmed:
		return "confirmed"
	case StartRejected:
		return "rejected"
	}
	return "undetermined"
}
