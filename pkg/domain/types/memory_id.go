package types

import "strconv"

// MemoryID is a monotonically assigned numeric identifier for Memory.
// Repository backends allocate IDs in strictly increasing order.
type MemoryID int64

// String returns the decimal representation of the MemoryID
func (x MemoryID) String() string {
	return strconv.FormatInt(int64(x), 10)
}

// ParseMemoryID parses a decimal string into a MemoryID
func ParseMemoryID(s string) (MemoryID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return MemoryID(v), nil
}
