package domain

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Season is an ordered tuple of calendar months, e.g. (6, 7, 8) for the
// northern summer or (12, 1, 2) for the southern one. An empty Season means
// no seasonal restriction.
type Season []time.Month

// ParseSeason parses a comma-separated month list such as "6,7,8". The empty
// string and "none" yield an empty Season.
func ParseSeason(s string) (Season, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	season := make(Season, 0, len(parts))
	for _, p := range parts {
		m, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || m < 1 || m > 12 {
			return nil, fmt.Errorf("parse season %q: invalid month %q", s, p)
		}
		season = append(season, time.Month(m))
	}
	return season, nil
}

// SeasonOf builds a Season from month numbers.
func SeasonOf(months ...int) Season {
	season := make(Season, len(months))
	for i, m := range months {
		season[i] = time.Month(m)
	}
	return season
}

// IsSet reports whether the season restricts anything.
func (s Season) IsSet() bool { return len(s) > 0 }

// Contains reports whether m is one of the season months.
func (s Season) Contains(m time.Month) bool {
	return slices.Contains(s, m)
}

// Extend pads the season by one month before its first month and one month
// after its last month, wrapping around the year boundary. The result holds
// each month once, in calendar order: (12, 1, 2) becomes (1, 2, 3, 11, 12).
func (s Season) Extend() Season {
	if !s.IsSet() {
		return nil
	}
	months := make(Season, 0, len(s)+2)
	months = append(months, prevMonth(s[0]))
	months = append(months, s...)
	months = append(months, nextMonth(s[len(s)-1]))

	slices.Sort(months)
	return slices.Compact(months)
}

// Days returns the length of the season in days, measured from the first day
// of the start month to the first day of the month following the end month in
// the leap year 2020. Seasons crossing the new year wrap into 2021. Without a
// season the whole year (366 days) is used.
func (s Season) Days() int {
	if !s.IsSet() {
		return 366
	}
	first, last := s[0], s[len(s)-1]
	start := time.Date(2020, first, 1, 0, 0, 0, 0, time.UTC)
	endYear := 2020
	if last < first {
		endYear++
	}
	end := time.Date(endYear, last, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return int(end.Sub(start).Hours() / 24)
}

// String renders the season as a comma-separated month list.
func (s Season) String() string {
	if !s.IsSet() {
		return "none"
	}
	parts := make([]string, len(s))
	for i, m := range s {
		parts[i] = strconv.Itoa(int(m))
	}
	return strings.Join(parts, ",")
}

// MaxMissingDays converts a percentage of the season length into the number of
// missing days at which a year stops being valid, rounded up.
func MaxMissingDays(pct float64, season Season) int {
	return int(math.Ceil(pct * float64(season.Days()) / 100))
}

func prevMonth(m time.Month) time.Month {
	if m == time.January {
		return time.December
	}
	return m - 1
}

func nextMonth(m time.Month) time.Month {
	if m == time.December {
		return time.January
	}
	return m + 1
}
