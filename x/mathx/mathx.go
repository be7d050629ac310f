// Package mathx holds small integer helpers for firmware maths. Keep inputs
// positive; unsigned arithmetic throughout.
package mathx

import "golang.org/x/exp/constraints"

// RoundDiv returns floor((a + b/2) / b), classic rounding for positives.
// Division by zero yields zero rather than a panic.
func RoundDiv[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}

// Between reports lo <= v && v <= hi (order-insensitive bounds).
func Between[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}
