package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// IsPowerOfTwo reports whether v is a non-zero power of two.
func IsPowerOfTwo[T constraints.Integer](v T) bool {
	return v > 0 && v&(v-1) == 0
}

// DivideAndRoundUp returns ceil(a / b) for positive b.
func DivideAndRoundUp[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}

// FloorLog2 returns the index of the highest set bit, 0 for v <= 1.
func FloorLog2(v uint32) uint32 {
	var r uint32
	for v > 1 {
		v >>= 1
		r++
	}
	return r
}

// GetAligned rounds operand up to a multiple of granularity, which must be a power of two.
func GetAligned(operand, granularity uint64) uint64 {
	if granularity <= 1 {
		return operand
	}
	return (operand + (granularity - 1)) &^ (granularity - 1)
}
