package domain

import "time"

// CalendarDays is the number of canonical calendar days, 02-29 included.
const CalendarDays = 366

// windowYear supplies the canonical calendar. It is a leap year so 02-29 has
// its own entry; members that spill over the year boundary come from the
// neighbouring non-leap years.
const windowYear = 1972

// CalendarWindow lists the calendar-day labels pooled around Day.
type CalendarWindow struct {
	Day     MonthDay
	Members []MonthDay
}

// CalendarWindows holds one window per canonical calendar day, Jan 1 first.
type CalendarWindows []CalendarWindow

// BuildCalendarWindows centers a window of windowLength days on each calendar
// day. The window spans floor(windowLength/2) days on either side, so an even
// length covers one day more than requested.
func BuildCalendarWindows(windowLength int) CalendarWindows {
	half := windowLength / 2
	if half < 0 {
		half = 0
	}

	windows := make(CalendarWindows, 0, CalendarDays)
	start := time.Date(windowYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := range CalendarDays {
		center := start.AddDate(0, 0, i)
		members := make([]MonthDay, 0, 2*half+1)
		for d := center.AddDate(0, 0, -half); !d.After(center.AddDate(0, 0, half)); d = d.AddDate(0, 0, 1) {
			members = append(members, MonthDayOf(d))
		}
		windows = append(windows, CalendarWindow{Day: MonthDayOf(center), Members: members})
	}
	return windows
}
