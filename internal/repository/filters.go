package repository

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidFilter is returned when a filter value cannot be interpreted.
var ErrInvalidFilter = errors.New("repository: invalid filter")

// Predicate renders one WHERE clause, registering its values through arg.
type Predicate func(arg func(any) string) string

// BookFilterKey enumerates the supported list filters.
type BookFilterKey string

const (
	FilterTitle      BookFilterKey = "title"
	FilterAuthor     BookFilterKey = "author"
	FilterTranslator BookFilterKey = "translator"
	FilterPubHouse   BookFilterKey = "pub_house"
	FilterAfter      BookFilterKey = "after"
	FilterBefore     BookFilterKey = "before"
	FilterISBN       BookFilterKey = "isbn"
	FilterHigherThan BookFilterKey = "higher_than"
	FilterLowerThan  BookFilterKey = "lower_than"
)

// BookFilterKeys lists every key in a stable order.
var BookFilterKeys = []BookFilterKey{
	FilterTitle, FilterAuthor, FilterTranslator, FilterPubHouse,
	FilterAfter, FilterBefore, FilterISBN, FilterHigherThan, FilterLowerThan,
}

// ParseBookFilterKey matches a query parameter name case-insensitively.
func ParseBookFilterKey(raw string) (BookFilterKey, bool) {
	key := BookFilterKey(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range BookFilterKeys {
		if key == known {
			return key, true
		}
	}
	return "", false
}

// BuildBookPredicate turns one filter key/value pair into a predicate.
func BuildBookPredicate(key BookFilterKey, value string) (Predicate, error) {
	value = strings.TrimSpace(value)
	switch key {
	case FilterTitle:
		return titlePredicate(value)
	case FilterAuthor:
		return arrayContainsPredicate("author", value), nil
	case FilterTranslator:
		return arrayContainsPredicate("translator", value), nil
	case FilterPubHouse:
		return func(arg func(any) string) string {
			return fmt.Sprintf("pub_house ILIKE %s", arg("%"+value+"%"))
		}, nil
	case FilterAfter:
		return publishedPredicate(value, ">")
	case FilterBefore:
		return publishedPredicate(value, "<")
	case FilterISBN:
		return func(arg func(any) string) string {
			return fmt.Sprintf("isbn = %s", arg(value))
		}, nil
	case FilterHigherThan:
		return ratingBoundPredicate(value, ">=")
	case FilterLowerThan:
		return ratingBoundPredicate(value, "<=")
	default:
		return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidFilter, key)
	}
}

func titlePredicate(value string) (Predicate, error) {
	keywords := strings.Fields(value)
	if len(keywords) == 0 {
		return func(func(any) string) string { return "TRUE" }, nil
	}
	return func(arg func(any) string) string {
		ors := make([]string, 0, len(keywords)*3)
		for _, kw := range keywords {
			contains := arg("%" + kw + "%")
			prefix := arg(kw + "%")
			ors = append(ors,
				fmt.Sprintf("title ILIKE %s", contains),
				fmt.Sprintf("subtitle ILIKE %s", prefix),
				fmt.Sprintf("orig_title ILIKE %s", contains),
			)
		}
		return "(" + strings.Join(ors, " OR ") + ")"
	}, nil
}

func arrayContainsPredicate(column, value string) Predicate {
	return func(arg func(any) string) string {
		return fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(%s) AS v WHERE v ILIKE %s)", column, arg("%"+value+"%"))
	}
}

var digitsRe = regexp.MustCompile(`\d+`)

// publishedPredicate handles "YYYY" and "YYYY-MM" bounds; op is ">" for
// after and "<" for before. A bare year is inclusive.
func publishedPredicate(value, op string) (Predicate, error) {
	numbers := digitsRe.FindAllString(value, -1)
	switch len(numbers) {
	case 1:
		year, err := strconv.Atoi(numbers[0])
		if err != nil {
			return nil, fmt.Errorf("%w: wrong date format", ErrInvalidFilter)
		}
		return func(arg func(any) string) string {
			return fmt.Sprintf("pub_year %s= %s", op, arg(year))
		}, nil
	case 2:
		year, errY := strconv.Atoi(numbers[0])
		month, errM := strconv.Atoi(numbers[1])
		if errY != nil || errM != nil || month < 1 || month > 12 || year < month {
			return nil, fmt.Errorf("%w: wrong date format", ErrInvalidFilter)
		}
		return func(arg func(any) string) string {
			y := arg(year)
			return fmt.Sprintf("(pub_year %s %s OR (pub_year = %s AND pub_month %s %s))", op, y, y, op, arg(month))
		}, nil
	default:
		// A bound with no digits, such as after=, is rejected rather than ignored.
		return nil, fmt.Errorf("%w: wrong date format", ErrInvalidFilter)
	}
}

func ratingBoundPredicate(value, op string) (Predicate, error) {
	bound, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: rating bound must be a number", ErrInvalidFilter)
	}
	return func(arg func(any) string) string {
		return fmt.Sprintf("rating %s %s::float8", op, arg(bound))
	}, nil
}
