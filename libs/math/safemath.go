package math

import (
	"errors"
	"math"
	"math/bits"
)

var (
	ErrOverflowUint64  = errors.New("uint64 overflow")
	ErrUnderflowUint64 = errors.New("uint64 underflow")
	ErrDivisionByZero  = errors.New("division by zero")
)

// SafeAddUint64 adds two uint64 integers.
// If there is an overflow it returns an error.
func SafeAddUint64(a, b uint64) (uint64, error) {
	c, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflowUint64
	}
	return c, nil
}

// SafeSubUint64 subtracts b from a.
// If b is larger than a it returns an error.
func SafeSubUint64(a, b uint64) (uint64, error) {
	c, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrUnderflowUint64
	}
	return c, nil
}

// SafeMulUint64 multiplies two uint64 integers.
// If there is an overflow it returns an error.
func SafeMulUint64(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflowUint64
	}
	return lo, nil
}

// MulDiv computes a*b/c with a 128-bit intermediate product. The quotient is
// truncated toward zero. It fails when c is zero or the quotient does not fit
// in 64 bits.
func MulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, ErrDivisionByZero
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, ErrOverflowUint64
	}
	q, _ := bits.Div64(hi, lo, c)
	return q, nil
}

// SaturatingSub returns a-b, or zero when b exceeds a.
func SaturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// SaturatingAdd returns a+b, or math.MaxUint64 on overflow.
func SaturatingAdd(a, b uint64) uint64 {
	c, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return c
}

// Clamp bounds x to the closed interval [lo, hi]. lo must not exceed hi.
func Clamp(x, lo, hi uint64) uint64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func MinUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
