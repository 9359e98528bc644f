package fastpath

import "fmt"

// Direction identifies one side of the datapath. Each direction is
// reference counted independently by the generic lifecycle manager.
type Direction uint8

const (
	// RX is the receive direction.
	RX Direction = iota
	// TX is the transmit direction.
	TX
)

func (d Direction) String() string {
	switch d {
	case RX:
		return "RX"
	case TX:
		return "TX"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}
