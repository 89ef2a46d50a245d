package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrevBusinessDaySkipsWeekend(t *testing.T) {
	// 2024-01-15 is a Monday.
	monday := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC), PrevBusinessDay(monday))

	tuesday := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), PrevBusinessDay(tuesday))
}

func TestNextBusinessDaySkipsWeekend(t *testing.T) {
	// 2024-01-12 is a Friday.
	friday := time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), NextBusinessDay(friday))
}

func TestBusinessDayRange(t *testing.T) {
	// Thursday 2024-01-11 through Tuesday 2024-01-16 spans one weekend.
	from := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)

	days := BusinessDayRange(from, to)
	want := []time.Time{
		time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, want, days)

	assert.Nil(t, BusinessDayRange(to, from), "inverted range is empty")
}

func TestDateOfDropsTime(t *testing.T) {
	ts := time.Date(2024, 3, 7, 17, 45, 12, 999, time.FixedZone("EST", -5*3600))
	d := DateOf(ts)
	assert.Equal(t, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), d)
}
