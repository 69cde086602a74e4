package domain

import "fmt"

// Aggregate is the running rating of a resource. A nil *Aggregate means the
// resource has no rated live comments; total score and number therefore can
// never be present independently.
type Aggregate struct {
	// TotalScore is the sum of live ratings in half-points.
	TotalScore int
	// Number counts live comments carrying a rating.
	Number int
}

// Mean returns round(TotalScore / (2*Number), 1) using round-half-to-even.
// In tenths that is 5*TotalScore / Number, which stays in integers.
func (a Aggregate) Mean() Tenths {
	if a.Number <= 0 {
		return 0
	}
	num := 5 * a.TotalScore
	q, r := num/a.Number, num%a.Number
	switch {
	case 2*r > a.Number:
		q++
	case 2*r == a.Number && q%2 == 1:
		q++
	}
	return Tenths(q)
}

// Validate reports states that the engine can never produce.
func (a Aggregate) Validate() error {
	if a.Number <= 0 {
		return fmt.Errorf("aggregate number %d must be positive", a.Number)
	}
	if a.TotalScore < 0 || a.TotalScore > MaxHalves*a.Number {
		return fmt.Errorf("aggregate total %d out of range for %d ratings", a.TotalScore, a.Number)
	}
	return nil
}

// OnCommentCreated adds a newly created comment's rating.
func OnCommentCreated(agg *Aggregate, rating *Rating) *Aggregate {
	if rating == nil {
		return agg
	}
	if agg == nil {
		return &Aggregate{TotalScore: rating.Halves(), Number: 1}
	}
	return &Aggregate{TotalScore: agg.TotalScore + rating.Halves(), Number: agg.Number + 1}
}

// OnCommentRatingChanged moves the aggregate from oldRating to newRating for a
// comment that stays live.
func OnCommentRatingChanged(agg *Aggregate, oldRating, newRating *Rating) *Aggregate {
	switch {
	case RatingPtrEqual(oldRating, newRating):
		return agg
	case oldRating == nil:
		return OnCommentCreated(agg, newRating)
	case newRating == nil:
		return OnCommentRemoved(agg, oldRating)
	case agg == nil:
		// A rated live comment implies an aggregate; rebuild from newRating.
		return &Aggregate{TotalScore: newRating.Halves(), Number: 1}
	default:
		return &Aggregate{
			TotalScore: agg.TotalScore + newRating.Halves() - oldRating.Halves(),
			Number:     agg.Number,
		}
	}
}

// OnCommentRemoved subtracts a comment's rating when it stops being live.
func OnCommentRemoved(agg *Aggregate, oldRating *Rating) *Aggregate {
	if oldRating == nil || agg == nil {
		return agg
	}
	if agg.Number <= 1 {
		return nil
	}
	return &Aggregate{TotalScore: agg.TotalScore - oldRating.Halves(), Number: agg.Number - 1}
}

// Recompute derives the aggregate directly from a set of live ratings.
func Recompute(ratings []*Rating) *Aggregate {
	var agg *Aggregate
	for _, r := range ratings {
		agg = OnCommentCreated(agg, r)
	}
	return agg
}
