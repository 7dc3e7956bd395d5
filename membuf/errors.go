package membuf

import "fmt"

// ShiftReason says which geometry rule a shift primitive rejected.
type ShiftReason int

const (
	ReasonPastMax ShiftReason = iota
	ReasonCountPastSize
	ReasonRangePastCount
)

func (r ShiftReason) String() string {
	switch r {
	case ReasonPastMax:
		return "range extends past the max size"
	case ReasonCountPastSize:
		return "occupied count is beyond the current size"
	case ReasonRangePastCount:
		return "range extends past the occupied count"
	default:
		return fmt.Sprintf("ShiftReason(%d)", int(r))
	}
}

// ShiftError is returned by MakeSpace, RemoveSpace and MoveToStart when the
// requested geometry is invalid. The buffer is unchanged.
type ShiftError struct {
	Op     string
	Reason ShiftReason
	Args   [3]uint32
}

func (e *ShiftError) Error() string {
	return fmt.Sprintf("membuf: %s(%d, %d, %d): %s", e.Op, e.Args[0], e.Args[1], e.Args[2], e.Reason)
}

// SizeError is returned when a size request is incompatible with the max
// size.
type SizeError struct {
	Op        string
	Requested uint32
	Max       uint32
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("membuf: %s: size %d invalid for max size %d", e.Op, e.Requested, e.Max)
}
