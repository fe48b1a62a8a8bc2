// Package date provides a calendar Date with day granularity, ranges of dates
// and the helpers needed to align daily price series coming from providers
// that do not agree on timezones.
package date

import (
	"encoding/json"
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const readDateFormat = "2006-1-2" // Permissive read date format (allows single-digit month/day).

// DateFormat is the format used to represent dates as strings in ISO-8601 format.
const DateFormat = "2006-01-02" // write date format

// Date represent a date with no lower than day granularity.
type Date struct {
	y int
	m time.Month
	d int
}

// New returns a normalized Date for the given year, month, and day.
func New(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// In returns the calendar date of the instant t as seen from loc.
//
// Providers disagree on the offset they attach to a daily bar (UTC midnight,
// exchange local time, ...). Converting every instant to one reference
// location before dropping the time of day keeps them on the same calendar.
func In(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return New(t.In(loc).Date())
}

// Today returns the current date.
func Today() Date { return New(time.Now().Date()) }

// time returns a time.Time that is a canonical representation of that day (at midnight UTC).
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// Time returns midnight of that day in loc.
func (d Date) Time(loc *time.Location) time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, loc) }

// Year returns the year of the date.
func (d Date) Year() int { return d.y }

// Month returns the month of the date.
func (d Date) Month() time.Month { return d.m }

// Day returns the day of the month.
func (d Date) Day() int { return d.d }

// Weekday returns the day of the week for the date.
func (d Date) Weekday() time.Weekday { return d.time().Weekday() }

// ISOWeek returns the ISO 8601 year and week number in which d occurs.
func (d Date) ISOWeek() (year, week int) { return d.time().ISOWeek() }

// IsZero reports whether d is the zero Date, that is, a date that was never set.
func (d Date) IsZero() bool { return d == Date{} }

// Before reports whether the day d is before x.
func (d Date) Before(x Date) bool { return d.Compare(x) < 0 }

// After reports whether the day d is after x.
func (d Date) After(x Date) bool { return d.Compare(x) > 0 }

// Compare returns -1, 0 or +1 whether d is before, equal or after x.
func (d Date) Compare(x Date) int {
	switch {
	case d.y != x.y:
		return cmp(d.y, x.y)
	case d.m != x.m:
		return cmp(int(d.m), int(x.m))
	default:
		return cmp(d.d, x.d)
	}
}

func cmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Add returns a new Date with the given number of days added.
func (d Date) Add(i int) Date { return New(d.y, d.m, d.d+i) }

// AddMonths returns the same day n months later, or the last day of that
// month if it is shorter: 2025-03-31 minus one month is 2025-02-28.
func (d Date) AddMonths(n int) Date {
	first := New(d.y, d.m+time.Month(n), 1)
	last := New(first.y, first.m+1, 0)
	return New(first.y, first.m, min(d.d, last.d))
}

// Format formats the date using the time package layout.
func (d Date) Format(layout string) string { return d.time().Format(layout) }

// String format the date in its standard format.
func (d Date) String() string { return d.time().Format(DateFormat) }

// Parse parses a Date from a string. It is lenient and accepts formats like "2025-7-1".
func Parse(str string) (Date, error) {
	on, err := time.Parse(readDateFormat, strings.TrimSpace(str))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, readDateFormat, err)
	}
	return New(on.Date()), nil
}

var relativeDateRE = regexp.MustCompile(`^([+-])(\d+)([dwmy])$`)

// ParseRelative parses either an absolute date (see Parse) or a date relative
// to today: a mandatory sign, a count and a unit among d, w, m and y.
//
// "-1y" is a year ago, "+2w" is two weeks from now.
func ParseRelative(str string) (Date, error) {
	str = strings.TrimSpace(str)
	match := relativeDateRE.FindStringSubmatch(str)
	if match == nil {
		return Parse(str)
	}
	num, err := strconv.Atoi(match[2])
	if err != nil {
		return Date{}, fmt.Errorf("invalid number in relative date %q: %w", str, err)
	}
	if match[1] == "-" {
		num = -num
	}
	today := Today()
	switch match[3] {
	case "w":
		return today.Add(num * 7), nil
	case "m":
		return today.AddMonths(num), nil
	case "y":
		return today.AddMonths(12 * num), nil
	default:
		return today.Add(num), nil
	}
}

// UnmarshalJSON implements the json specific way to unmarshall a date from a json string.
func (j *Date) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	d, err := Parse(str)
	if err != nil {
		return err
	}
	*j = d
	return nil
}

func (j Date) MarshalJSON() ([]byte, error) {
	str := j.String()
	return json.Marshal(&str)
}

// check that a Date pointer is a valid json marshall/unmarshaller type.
var _ json.Marshaler = (*Date)(nil)
var _ json.Unmarshaler = (*Date)(nil)

// Union returns an iterator over all unique dates of several series, in
// chronological order. Each series must already be sorted chronologically.
func Union(series ...[]Date) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		indexes := make([]int, len(series))
		for {
			// find the smallest date not consumed yet
			var m Date
			found := false
			for i, index := range indexes {
				if index >= len(series[i]) {
					continue
				}
				if on := series[i][index]; !found || on.Before(m) {
					m, found = on, true
				}
			}
			if !found {
				// All series have been consumed.
				return
			}
			// consume every series sitting on that date, duplicates included.
			for i := range indexes {
				for indexes[i] < len(series[i]) && series[i][indexes[i]] == m {
					indexes[i]++
				}
			}
			if !yield(m) {
				return
			}
		}
	}
}
