package automaton

// StarStatus Describes how far the star of a weightset can be trusted, which decides how the validity of
// an automaton with spontaneous cycles is checked.
type StarStatus int

const (
	// Starable star is defined for every value.
	Starable = StarStatus(iota)
	// Tops star is defined for some values; validity is checked by running the elimination.
	Tops
	// AbsVal validity is checked by running the elimination on absolute values.
	AbsVal
	// NonStarable only star(zero) is defined.
	NonStarable
)

func (s StarStatus) String() string {
	switch s {
	case Starable:
		return "starable"
	case Tops:
		return "tops"
	case AbsVal:
		return "absval"
	case NonStarable:
		return "non-starable"
	default:
		return "unknown"
	}
}

// Weightset The semiring a weighted automaton is defined over. Implementations must be free of side effects:
// Add is associative and commutative with Zero as identity, Mul is associative with One as identity and
// distributes over Add.
//
// Star returns the sum One + w + w.w + ... and must return an error wrapping ErrUnstarable when that sum
// does not exist in the semiring, never loop trying to compute it.
type Weightset[W any] interface {
	Name() string

	Zero() W
	One() W
	Add(a, b W) W
	Mul(a, b W) W
	Equal(a, b W) bool
	IsZero(w W) bool

	Star(w W) (W, error)
	StarStatus() StarStatus

	Format(w W) string
	Parse(s string) (W, error)
}

// Abser is implemented by weightsets with an absolute value, needed to check validity under AbsVal.
type Abser[W any] interface {
	Abs(w W) W
}
