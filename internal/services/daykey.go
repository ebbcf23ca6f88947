package services

import "time"

// DateKeyFor maps an instant to the user's logical day. Hours before the day
// boundary still belong to the previous date, so a 1am check-in with a 4am
// boundary lands on yesterday's key.
func DateKeyFor(t time.Time, timezone string, boundaryHour int) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	local := t.In(loc)
	if boundaryHour > 0 && local.Hour() < boundaryHour {
		local = local.AddDate(0, 0, -1)
	}
	return local.Format("2006-01-02")
}
