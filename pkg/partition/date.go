package partition

import (
	"fmt"
	"iter"
	"math"
	"time"
)

// Day is the resolution of date partitions.
const Day = 24 * time.Hour

// Bounds of an open date range.
var (
	MinDate = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	MaxDate = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// Date is a closed range of calendar days.
type Date struct {
	start      time.Time
	end        time.Time
	descending bool
}

// DateOption configures a Date partition.
type DateOption func(*Date)

// Descending iterates from the end of the range to the start.
func Descending() DateOption {
	return func(d *Date) { d.descending = true }
}

// NewDate creates a partition over [start, end]. A zero start or end leaves
// that side open. Times are truncated to their UTC calendar date.
func NewDate(start, end time.Time, opts ...DateOption) (*Date, error) {
	d := &Date{start: MinDate, end: MaxDate}
	if !start.IsZero() {
		d.start = Truncate(start)
	}
	if !end.IsZero() {
		d.end = Truncate(end)
	}
	if d.start.After(d.end) {
		return nil, fmt.Errorf("date partition start %s is after end %s",
			d.start.Format(time.DateOnly), d.end.Format(time.DateOnly))
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start returns the first day of the range.
func (d *Date) Start() time.Time { return d.start }

// End returns the last day of the range.
func (d *Date) End() time.Time { return d.end }

// Bounded reports whether both ends of the range were given.
func (d *Date) Bounded() bool {
	return !d.start.Equal(MinDate) && !d.end.Equal(MaxDate)
}

// IsDescending reports the iteration direction.
func (d *Date) IsDescending() bool { return d.descending }

// Valid reports whether key is a date inside the range.
func (d *Date) Valid(key any) bool {
	t, ok := key.(time.Time)
	if !ok {
		return false
	}
	t = Truncate(t)
	return !t.Before(d.start) && !t.After(d.end)
}

// Resolve translates a key. An integer n resolves to an offset of n days;
// offsets beyond MaxOffsetDays fail with ErrOutOfRange.
// A time resolves to its calendar date, which must lie inside the range.
func (d *Date) Resolve(key any) (any, bool, error) {
	switch k := key.(type) {
	case int:
		return dayOffset(int64(k))
	case int64:
		return dayOffset(k)
	case int32:
		return dayOffset(int64(k))
	case time.Time:
		t := Truncate(k)
		if t.Before(d.start) || t.After(d.end) {
			return nil, false, &RangeError{
				Key:   t.Format(time.DateOnly),
				Start: d.start.Format(time.DateOnly),
				End:   d.end.Format(time.DateOnly),
			}
		}
		return t, false, nil
	default:
		return nil, false, fmt.Errorf("%w: %T (want a date or a day offset)", ErrUnsupportedKey, key)
	}
}

// MaxOffsetDays is the largest day offset a time.Duration can hold.
const MaxOffsetDays = int64(math.MaxInt64 / int64(Day))

func dayOffset(n int64) (any, bool, error) {
	if n > MaxOffsetDays || n < -MaxOffsetDays {
		return nil, false, &RangeError{
			Key:   fmt.Sprintf("%+dd", n),
			Start: fmt.Sprintf("%+dd", -MaxOffsetDays),
			End:   fmt.Sprintf("%+dd", MaxOffsetDays),
		}
	}
	return time.Duration(n) * Day, true, nil
}

// Anchor adds a resolved offset to an anchor date and checks the result
// against the range.
func (d *Date) Anchor(anchor, offset any) (any, error) {
	a, ok := anchor.(time.Time)
	if !ok {
		return nil, fmt.Errorf("%w: anchor %T is not a date", ErrUnsupportedKey, anchor)
	}
	delta, ok := offset.(time.Duration)
	if !ok {
		return nil, fmt.Errorf("%w: offset %T is not a duration", ErrUnsupportedKey, offset)
	}
	key, _, err := d.Resolve(Truncate(a).Add(delta))
	return key, err
}

// Iterate walks the range one day at a time in the configured direction.
func (d *Date) Iterate() iter.Seq[any] {
	return func(yield func(any) bool) {
		if d.descending {
			for t := d.end; !t.Before(d.start); t = t.AddDate(0, 0, -1) {
				if !yield(t) {
					return
				}
			}
			return
		}
		for t := d.start; !t.After(d.end); t = t.AddDate(0, 0, 1) {
			if !yield(t) {
				return
			}
		}
	}
}

// String implements fmt.Stringer.
func (d *Date) String() string {
	dir := "asc"
	if d.descending {
		dir = "desc"
	}
	return fmt.Sprintf("date[%s..%s %s]", d.start.Format(time.DateOnly), d.end.Format(time.DateOnly), dir)
}

// Truncate returns the UTC calendar date of t at midnight.
func Truncate(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
