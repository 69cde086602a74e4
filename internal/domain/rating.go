package domain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// MaxHalves is the top of the rating scale expressed in half-points (5.0).
const MaxHalves = 10

// ErrInvalidRating is returned for any value outside {0.0, 0.5, ..., 5.0}.
var ErrInvalidRating = errors.New("rating must be one of [0.0, 0.5, 1.0, 1.5, 2.0, 2.5, 3.0, 3.5, 4.0, 4.5, 5.0]")

// Rating is a comment rating stored as a count of half-points, so 4.5 is 9.
// Arithmetic never leaves the integer domain.
type Rating uint8

// NewRatingFromHalves builds a Rating from half-point units.
func NewRatingFromHalves(halves int) (Rating, error) {
	if halves < 0 || halves > MaxHalves {
		return 0, ErrInvalidRating
	}
	return Rating(halves), nil
}

// ParseRating validates a decimal literal such as "4", "4.0" or "3.5".
// The literal is evaluated exactly; binary floating point is never involved.
func ParseRating(literal string) (Rating, error) {
	literal = strings.TrimSpace(literal)
	if !isPlainDecimal(literal) {
		return 0, ErrInvalidRating
	}
	value, ok := new(big.Rat).SetString(literal)
	if !ok {
		return 0, ErrInvalidRating
	}
	doubled := new(big.Rat).Mul(value, big.NewRat(2, 1))
	if !doubled.IsInt() {
		return 0, ErrInvalidRating
	}
	halves := doubled.Num()
	if !halves.IsInt64() {
		return 0, ErrInvalidRating
	}
	return NewRatingFromHalves(int(halves.Int64()))
}

// isPlainDecimal accepts [+-]digits[.digits]; big.Rat alone would also take
// fractions, exponents and base prefixes.
func isPlainDecimal(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if intPart == "" || (hasDot && fracPart == "") {
		return false
	}
	for _, part := range []string{intPart, fracPart} {
		for _, c := range part {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

// ParseOptionalRating treats a nil literal as "no rating given".
func ParseOptionalRating(literal *string) (*Rating, error) {
	if literal == nil {
		return nil, nil
	}
	r, err := ParseRating(*literal)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Halves returns the half-point count.
func (r Rating) Halves() int {
	return int(r)
}

// String renders the rating with one fractional digit.
func (r Rating) String() string {
	return fmt.Sprintf("%d.%d", int(r)/2, (int(r)%2)*5)
}

// RatingPtrEqual compares two optional ratings, treating nil == nil.
func RatingPtrEqual(a, b *Rating) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Tenths is a non-negative decimal with one fractional digit, stored as tenths.
type Tenths int

// String renders e.g. Tenths(35) as "3.5".
func (t Tenths) String() string {
	return fmt.Sprintf("%d.%d", int(t)/10, int(t)%10)
}
