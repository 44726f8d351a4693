package partition

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func january(t *testing.T, opts ...DateOption) *Date {
	t.Helper()
	p, err := NewDate(day("2024-01-01"), day("2024-01-31"), opts...)
	require.NoError(t, err)
	return p
}

func TestDefault(t *testing.T) {
	var p Partition = Default{}

	key, isOffset, err := p.Resolve(42)
	require.NoError(t, err)
	assert.Nil(t, key)
	assert.False(t, isOffset)
	assert.True(t, p.Valid("anything"))
	assert.Equal(t, []any{nil}, slices.Collect(p.Iterate()))
}

func TestDate_Resolve(t *testing.T) {
	p := january(t)

	tests := []struct {
		name       string
		key        any
		want       any
		wantOffset bool
		wantErr    error
	}{
		{"inside", day("2024-01-15"), day("2024-01-15"), false, nil},
		{"truncated to date", time.Date(2024, 1, 15, 13, 45, 0, 0, time.UTC), day("2024-01-15"), false, nil},
		{"first day", day("2024-01-01"), day("2024-01-01"), false, nil},
		{"last day", day("2024-01-31"), day("2024-01-31"), false, nil},
		{"after end", day("2024-02-01"), nil, false, ErrOutOfRange},
		{"before start", day("2023-12-31"), nil, false, ErrOutOfRange},
		{"negative offset", -1, -Day, true, nil},
		{"int64 offset", int64(3), 3 * Day, true, nil},
		{"string", "2024-01-15", nil, false, ErrUnsupportedKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, isOffset, err := p.Resolve(tt.key)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOffset, isOffset)
		})
	}
}

func TestDate_RangeError(t *testing.T) {
	_, _, err := january(t).Resolve(day("2024-02-01"))
	var rangeErr *RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, "2024-02-01", rangeErr.Key)
	assert.Contains(t, err.Error(), "[2024-01-01, 2024-01-31]")
}

func TestDate_Valid(t *testing.T) {
	p := january(t)
	assert.True(t, p.Valid(day("2024-01-10")))
	assert.False(t, p.Valid(day("2024-03-01")))
	assert.False(t, p.Valid(-1))
}

func TestDate_Iterate(t *testing.T) {
	p, err := NewDate(day("2024-01-30"), day("2024-02-02"))
	require.NoError(t, err)

	want := []any{day("2024-01-30"), day("2024-01-31"), day("2024-02-01"), day("2024-02-02")}
	assert.Equal(t, want, slices.Collect(p.Iterate()))
	// Restartable.
	assert.Equal(t, want, slices.Collect(p.Iterate()))

	desc, err := NewDate(day("2024-01-30"), day("2024-02-02"), Descending())
	require.NoError(t, err)
	got := slices.Collect(desc.Iterate())
	slices.Reverse(want)
	assert.Equal(t, want, got)
}

func TestDate_IterateStopsEarly(t *testing.T) {
	n := 0
	for range january(t).Iterate() {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestDate_OpenBounds(t *testing.T) {
	p, err := NewDate(time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, MinDate, p.Start())
	assert.Equal(t, MaxDate, p.End())
	assert.True(t, p.Valid(day("1970-01-01")))
}

func TestKeys(t *testing.T) {
	keys, err := Keys(january(t))
	require.NoError(t, err)
	assert.Len(t, keys, 31)

	keys, err = Keys(Default{})
	require.NoError(t, err)
	assert.Equal(t, []any{nil}, keys)

	open, err := NewDate(day("2024-01-01"), time.Time{})
	require.NoError(t, err)
	assert.False(t, open.Bounded())
	_, err = Keys(open)
	require.ErrorIs(t, err, ErrUnbounded)
}

func TestDate_OffsetBounds(t *testing.T) {
	p, err := NewDate(time.Time{}, time.Time{})
	require.NoError(t, err)

	off, isOffset, err := p.Resolve(-100000)
	require.NoError(t, err)
	require.True(t, isOffset)
	key, err := p.Anchor(day("2024-01-01"), off)
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-01").AddDate(0, 0, -100000), key)

	for _, k := range []any{-150000, int64(MaxOffsetDays + 1), -(MaxOffsetDays + 1)} {
		_, _, err := p.Resolve(k)
		require.ErrorIs(t, err, ErrOutOfRange, "key %v", k)
	}

	_, _, err = p.Resolve(int64(MaxOffsetDays))
	require.NoError(t, err)
}

func TestNewDate_Inverted(t *testing.T) {
	_, err := NewDate(day("2024-02-01"), day("2024-01-01"))
	require.Error(t, err)
}

func TestDate_Anchor(t *testing.T) {
	p := january(t)

	offset, isOffset, err := p.Resolve(-1)
	require.NoError(t, err)
	require.True(t, isOffset)

	key, err := p.Anchor(day("2024-01-10"), offset)
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-09"), key)

	_, err = p.Anchor(day("2024-01-01"), offset)
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = p.Anchor("today", offset)
	require.ErrorIs(t, err, ErrUnsupportedKey)
}
