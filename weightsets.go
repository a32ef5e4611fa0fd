package automaton

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

func unstarable[W any](ws Weightset[W], w W) error {
	return fmt.Errorf("%w: %s: star: invalid value: %s", ErrUnstarable, ws.Name(), ws.Format(w))
}

func invalidWeight(name, s string) error {
	return fmt.Errorf("%w: %s: %q", ErrInvalidWeight, name, s)
}

var _ Weightset[bool] = Boolean{}

// Boolean The boolean semiring (or, and). Every value is starable.
type Boolean struct{}

func (Boolean) Name() string { return "b" }
func (Boolean) Zero() bool { return false }
func (Boolean) One() bool { return true }
func (Boolean) Add(a, b bool) bool { return a || b }
func (Boolean) Mul(a, b bool) bool { return a && b }
func (Boolean) Equal(a, b bool) bool { return a == b }
func (Boolean) IsZero(w bool) bool { return !w }
func (Boolean) Star(bool) (bool, error) { return true, nil }
func (Boolean) StarStatus() StarStatus { return Starable }

func (Boolean) Format(w bool) string {
	if w {
		return "1"
	}
	return "0"
}

func (b Boolean) Parse(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, invalidWeight(b.Name(), s)
}

var _ Weightset[int64] = Integer{}

// Integer The ring of integers. Only zero has a star, so any spontaneous cycle of non-zero weight makes the
// elimination fail.
type Integer struct{}

func (Integer) Name() string { return "z" }
func (Integer) Zero() int64 { return 0 }
func (Integer) One() int64 { return 1 }
func (Integer) Add(a, b int64) int64 { return a + b }
func (Integer) Mul(a, b int64) int64 { return a * b }
func (Integer) Equal(a, b int64) bool { return a == b }
func (Integer) IsZero(w int64) bool { return w == 0 }
func (Integer) StarStatus() StarStatus { return NonStarable }
func (Integer) Format(w int64) string { return strconv.FormatInt(w, 10) }
func (Integer) Abs(w int64) int64 { return max(w, -w) }

func (z Integer) Star(w int64) (int64, error) {
	if w == 0 {
		return 1, nil
	}
	return 0, unstarable[int64](z, w)
}

func (z Integer) Parse(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, invalidWeight(z.Name(), s)
	}
	return v, nil
}

var _ Weightset[*big.Rat] = Rational{}
var _ Abser[*big.Rat] = Rational{}

// Rational The field of rationals. Values are never mutated once returned; every operation allocates.
type Rational struct{}

func (Rational) Name() string { return "q" }
func (Rational) Zero() *big.Rat { return new(big.Rat) }
func (Rational) One() *big.Rat { return big.NewRat(1, 1) }
func (Rational) Add(a, b *big.Rat) *big.Rat { return new(big.Rat).Add(a, b) }
func (Rational) Mul(a, b *big.Rat) *big.Rat { return new(big.Rat).Mul(a, b) }
func (Rational) Equal(a, b *big.Rat) bool { return a.Cmp(b) == 0 }
func (Rational) IsZero(w *big.Rat) bool { return w.Sign() == 0 }
func (Rational) StarStatus() StarStatus { return AbsVal }
func (Rational) Format(w *big.Rat) string { return w.RatString() }
func (Rational) Abs(w *big.Rat) *big.Rat { return new(big.Rat).Abs(w) }

// Star 1/(1-w), defined for |w| < 1.
func (q Rational) Star(w *big.Rat) (*big.Rat, error) {
	abs := new(big.Rat).Abs(w)
	if abs.Cmp(q.One()) >= 0 {
		return nil, unstarable[*big.Rat](q, w)
	}
	d := new(big.Rat).Sub(q.One(), w)
	return d.Inv(d), nil
}

func (q Rational) Parse(s string) (*big.Rat, error) {
	v, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, invalidWeight(q.Name(), s)
	}
	return v, nil
}

// Q Shorthand for building rational weights in literals.
func Q(num, den int64) *big.Rat {
	return big.NewRat(num, den)
}

var _ Weightset[float64] = Real{}
var _ Abser[float64] = Real{}

// Real The field of floating point reals. Equal tolerates rounding, since elimination order changes the
// order of additions.
type Real struct{}

const realTolerance = 1e-9

func (Real) Name() string { return "r" }
func (Real) Zero() float64 { return 0 }
func (Real) One() float64 { return 1 }
func (Real) Add(a, b float64) float64 { return a + b }
func (Real) Mul(a, b float64) float64 { return a * b }
func (Real) IsZero(w float64) bool { return w == 0 }
func (Real) StarStatus() StarStatus { return AbsVal }
func (Real) Format(w float64) string { return strconv.FormatFloat(w, 'g', -1, 64) }
func (Real) Abs(w float64) float64 { return math.Abs(w) }

func (Real) Equal(a, b float64) bool {
	scale := max(1, math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= realTolerance*scale
}

// Star 1/(1-w), defined for -1 < w < 1.
func (r Real) Star(w float64) (float64, error) {
	if -1 < w && w < 1 {
		return 1 / (1 - w), nil
	}
	return 0, unstarable[float64](r, w)
}

func (r Real) Parse(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, invalidWeight(r.Name(), s)
	}
	return v, nil
}

// Infinity is the zero of ZMin, MinusInfinity the zero of ZMax.
const (
	Infinity      = int64(math.MaxInt64)
	MinusInfinity = int64(math.MinInt64)
)

var _ Weightset[int64] = ZMin{}

// ZMin The tropical (min, +) semiring over integers, with Infinity as zero and 0 as one.
type ZMin struct{}

func (ZMin) Name() string { return "zmin" }
func (ZMin) Zero() int64 { return Infinity }
func (ZMin) One() int64 { return 0 }
func (ZMin) Add(a, b int64) int64 { return min(a, b) }
func (ZMin) Equal(a, b int64) bool { return a == b }
func (ZMin) IsZero(w int64) bool { return w == Infinity }
func (ZMin) StarStatus() StarStatus { return Tops }

func (ZMin) Mul(a, b int64) int64 {
	if a == Infinity || b == Infinity {
		return Infinity
	}
	return a + b
}

// Star min(0, w, 2w, ...), which only exists for w >= 0.
func (z ZMin) Star(w int64) (int64, error) {
	if w >= 0 {
		return 0, nil
	}
	return 0, unstarable[int64](z, w)
}

func (ZMin) Format(w int64) string {
	if w == Infinity {
		return "oo"
	}
	return strconv.FormatInt(w, 10)
}

func (z ZMin) Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "oo" {
		return Infinity, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, invalidWeight(z.Name(), s)
	}
	return v, nil
}

var _ Weightset[int64] = ZMax{}

// ZMax The (max, +) semiring over integers, with MinusInfinity as zero and 0 as one.
type ZMax struct{}

func (ZMax) Name() string { return "zmax" }
func (ZMax) Zero() int64 { return MinusInfinity }
func (ZMax) One() int64 { return 0 }
func (ZMax) Add(a, b int64) int64 { return max(a, b) }
func (ZMax) Equal(a, b int64) bool { return a == b }
func (ZMax) IsZero(w int64) bool { return w == MinusInfinity }
func (ZMax) StarStatus() StarStatus { return Tops }

func (ZMax) Mul(a, b int64) int64 {
	if a == MinusInfinity || b == MinusInfinity {
		return MinusInfinity
	}
	return a + b
}

// Star max(0, w, 2w, ...), which only exists for w <= 0.
func (z ZMax) Star(w int64) (int64, error) {
	if w <= 0 {
		return 0, nil
	}
	return 0, unstarable[int64](z, w)
}

func (ZMax) Format(w int64) string {
	if w == MinusInfinity {
		return "-oo"
	}
	return strconv.FormatInt(w, 10)
}

func (z ZMax) Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "-oo" {
		return MinusInfinity, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, invalidWeight(z.Name(), s)
	}
	return v, nil
}
