package checkin

import "time"

// WeekStart maps an instant to its week bucket: the Monday 00:00:00 of the
// ISO week containing t, in the given location. Sunday belongs to the week
// that started the preceding Monday. Idempotent.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	day := int(t.Weekday()) // Sunday = 0 .. Saturday = 6
	diff := 1 - day
	if day == 0 {
		diff = -6
	}
	y, m, d := t.Date()
	return time.Date(y, m, d+diff, 0, 0, 0, 0, loc)
}

// ParseWeekDate parses a client-supplied week start date (YYYY-MM-DD) as a
// midnight date in the given location. The value is used verbatim as the
// week bucket, which allows backfilling past weeks.
func ParseWeekDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
