package math

import "fmt"

// PermilleScale is the denominator of every Permille value.
const PermilleScale = 1000

// Permille is a ratio expressed in parts per thousand, e.g. 1300 is 130%.
type Permille uint64

const (
	ZeroPermille Permille = 0
	OnePermille  Permille = PermilleScale
)

// PermilleOf returns num/den in parts per thousand, truncated.
func PermilleOf(num, den uint64) (Permille, error) {
	v, err := MulDiv(num, PermilleScale, den)
	return Permille(v), err
}

// Of applies the ratio to x, truncating the result.
func (p Permille) Of(x uint64) (uint64, error) {
	return MulDiv(x, uint64(p), PermilleScale)
}

// MustOf is like Of but panics on overflow. Only use it with operands that
// are bounded by construction.
func (p Permille) MustOf(x uint64) uint64 {
	v, err := p.Of(x)
	if err != nil {
		panic(fmt.Sprintf("permille %d of %d: %v", p, x, err))
	}
	return v
}

func (p Permille) String() string {
	return fmt.Sprintf("%d.%d%%", p/10, p%10)
}
