package mutations

import "time"

const dateLayout = "2006-01-02"

// fastParseDate parses "YYYY-MM-DD" ~10x faster than time.Parse by avoiding
// layout parsing. Returns zero time and false on invalid input.
func fastParseDate(s string) (time.Time, bool) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return time.Time{}, false
	}
	for _, i := range [...]int{0, 1, 2, 3, 5, 6, 8, 9} {
		if s[i] < '0' || s[i] > '9' {
			return time.Time{}, false
		}
	}
	y := int(s[0]-'0')*1000 + int(s[1]-'0')*100 + int(s[2]-'0')*10 + int(s[3]-'0')
	m := time.Month(int(s[5]-'0')*10 + int(s[6]-'0'))
	d := int(s[8]-'0')*10 + int(s[9]-'0')
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflowing days (Feb 30 becomes Mar 2); reject
	// anything that did not survive the round trip.
	if t.Month() != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func daysBetween(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// yearsOfService converts tenure to fractional years, clamped at zero for
// employment that starts after the reference date.
func yearsOfService(employmentStart, at time.Time) float64 {
	y := daysBetween(employmentStart, at) / 365.25
	if y < 0 {
		return 0
	}
	return y
}

// calendarYears returns whole years between two dates (for age eligibility).
func calendarYears(birth, target time.Time) int {
	years := target.Year() - birth.Year()
	if target.Month() < birth.Month() ||
		(target.Month() == birth.Month() && target.Day() < birth.Day()) {
		years--
	}
	return years
}
