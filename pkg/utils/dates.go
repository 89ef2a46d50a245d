package utils

import "time"

// DateOf normalizes a time to midnight UTC, keeping only the calendar date.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsBusinessDay reports whether the date falls on a weekday.
// Holiday calendars are a provider-side concern and are not applied here.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// PrevBusinessDay returns the closest business day strictly before t.
func PrevBusinessDay(t time.Time) time.Time {
	d := DateOf(t).AddDate(0, 0, -1)
	for !IsBusinessDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// NextBusinessDay returns the closest business day strictly after t.
func NextBusinessDay(t time.Time) time.Time {
	d := DateOf(t).AddDate(0, 0, 1)
	for !IsBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// BusinessDayRange returns every business day from 'from' to 'to' inclusive,
// in ascending order. Returns nil if from is after to.
func BusinessDayRange(from, to time.Time) []time.Time {
	from, to = DateOf(from), DateOf(to)
	if from.After(to) {
		return nil
	}
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			days = append(days, d)
		}
	}
	return days
}
