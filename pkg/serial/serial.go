// Package serial provides the logical clock used to version records.
//
// A Number is a stamp drawn from a monotonically increasing counter. Stamps
// are only ever compared with each other to decide whether one snapshot of a
// record is newer than another; they carry no wall-clock meaning.
package serial

import (
	"fmt"
	"sync/atomic"
)

// Number is an immutable, totally ordered version stamp.
type Number struct {
	value uint64
}

// Clock hands out strictly increasing stamps. The zero Clock is ready to use
// and issues 0 first.
type Clock struct {
	next atomic.Uint64
}

// Next returns a stamp greater than every stamp previously issued by c.
func (c *Clock) Next() Number {
	return Number{value: c.next.Add(1) - 1}
}

var global Clock

// Next returns the next stamp from the process-wide clock.
func Next() Number {
	return global.Next()
}

// Before reports whether n was issued before other.
func (n Number) Before(other Number) bool {
	return n.value < other.value
}

// After reports whether n was issued after other.
func (n Number) After(other Number) bool {
	return n.value > other.value
}

// Compare returns -1, 0 or +1 depending on whether n is older than, equal to
// or newer than other.
func (n Number) Compare(other Number) int {
	switch {
	case n.value < other.value:
		return -1
	case n.value > other.value:
		return 1
	default:
		return 0
	}
}

// GoString is for debugging output only.
func (n Number) GoString() string {
	return fmt.Sprintf("serial.Number{%d}", n.value)
}
