// Package calendarview builds the month grid shown on the meetings tabs.
// It only works against the in-memory meeting cache; staleness after a
// mutation is accepted until the next explicit refetch.
package calendarview

import (
	"time"

	"github.com/linwq87/meetassist/pkg/assistant"
)

// Density is the per-day meeting density level used for cell coloring.
type Density string

const (
	DensityNone   Density = ""
	DensityLow    Density = "low"    // 1-3 meetings
	DensityMedium Density = "medium" // 4-9 meetings
	DensityHigh   Density = "high"   // 10 or more
)

// DensityFor maps a meeting count to its density level.
func DensityFor(count int) Density {
	switch {
	case count <= 0:
		return DensityNone
	case count >= 10:
		return DensityHigh
	case count >= 4:
		return DensityMedium
	default:
		return DensityLow
	}
}

// Day is one cell of the month grid. Number is 0 for the leading blank
// cells before the first weekday.
type Day struct {
	Number  int
	Today   bool
	Count   int
	Density Density
}

// Month is a fully laid out month grid, Sunday first.
type Month struct {
	Year  int
	Month time.Month
	Title string
	Days  []Day
}

// CountPerDay buckets meetings by local day-of-month for the given
// year/month. Meetings outside the month are ignored.
func CountPerDay(meetings []assistant.Meeting, year int, month time.Month) map[int]int {
	counts := make(map[int]int)
	for _, m := range meetings {
		t := m.StartTime()
		if t.IsZero() {
			continue
		}
		t = t.Local()
		if t.Year() == year && t.Month() == month {
			counts[t.Day()]++
		}
	}
	return counts
}

// BuildMonth lays out the grid for the cursor's year/month. Today is
// marked only when the displayed month is the real current month.
func BuildMonth(cursor, now time.Time, meetings []assistant.Meeting) Month {
	year, month := cursor.Year(), cursor.Month()
	first := time.Date(year, month, 1, 0, 0, 0, 0, cursor.Location())
	daysInMonth := first.AddDate(0, 1, -1).Day()
	counts := CountPerDay(meetings, year, month)
	isCurrentMonth := now.Year() == year && now.Month() == month

	out := Month{
		Year:  year,
		Month: month,
		Title: first.Format("January 2006"),
	}
	for i := 0; i < int(first.Weekday()); i++ {
		out.Days = append(out.Days, Day{})
	}
	for day := 1; day <= daysInMonth; day++ {
		count := counts[day]
		out.Days = append(out.Days, Day{
			Number:  day,
			Today:   isCurrentMonth && day == now.Day(),
			Count:   count,
			Density: DensityFor(count),
		})
	}
	return out
}

// MeetingsOn filters the cached meeting set to one local calendar day.
// No network call is made.
func MeetingsOn(meetings []assistant.Meeting, year int, month time.Month, day int) []assistant.Meeting {
	var out []assistant.Meeting
	for _, m := range meetings {
		t := m.StartTime()
		if t.IsZero() {
			continue
		}
		t = t.Local()
		if t.Year() == year && t.Month() == month && t.Day() == day {
			out = append(out, m)
		}
	}
	return out
}
