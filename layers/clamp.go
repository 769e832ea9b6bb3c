package layers

import "golang.org/x/exp/constraints"

// clamp limits v to [lo, hi]. If hi < lo the result is lo.
func clamp[T constraints.Integer](v, lo, hi T) T {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// halfOf returns n/2 rounded down, never negative.
func halfOf[T constraints.Integer](n T) T {
	if n <= 0 {
		return 0
	}
	return n / 2
}
