package date

import "fmt"

// Range represents a range of dates, boundaries included.
type Range struct{ From, To Date }

// NewRange returns the range between from and to, swapping them if needed.
func NewRange(from, to Date) Range {
	if to.Before(from) {
		from, to = to, from
	}
	return Range{From: from, To: to}
}

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool { return !date.Before(r.From) && !date.After(r.To) }

// Days returns the number of days in the range.
func (r Range) Days() int { return int(r.To.time().Sub(r.From.time()).Hours()/24) + 1 }

func (r Range) String() string { return fmt.Sprintf("%s..%s", r.From, r.To) }

// Identifier compute a short identifier for the Range.
//
// Standard periods get an insightful name (2025-03-14, 2025-W11, 2025-03),
// anything else is the concatenation of its boundaries.
func (r Range) Identifier() string {
	switch {
	case r.From == r.To:
		return r.From.String()
	case r.From == r.From.StartOf(Weekly) && r.To == r.From.EndOf(Weekly):
		year, week := r.From.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case r.From == r.From.StartOf(Monthly) && r.To == r.From.EndOf(Monthly):
		return r.From.Format("2006-01")
	default:
		return fmt.Sprintf("%s_%s", r.From, r.To)
	}
}
