package common

import (
	"fmt"
	"math"
)

// SafeInt64ToUint32 safely converts int64 to uint32 with bounds checking
func SafeInt64ToUint32(value int64) (uint32, error) {
	if value < 0 {
		return 0, fmt.Errorf("value %d is negative, cannot convert to uint32", value)
	}
	if value > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of range for uint32 (0-%d)", value, uint64(math.MaxUint32))
	}
	return uint32(value), nil
}

// SafeInt64ToInt safely converts a non-negative int64 to int
func SafeInt64ToInt(value int64) (int, error) {
	if value < 0 {
		return 0, fmt.Errorf("value %d is negative", value)
	}
	if value > math.MaxInt {
		return 0, fmt.Errorf("value %d out of range for int", value)
	}
	return int(value), nil
}
