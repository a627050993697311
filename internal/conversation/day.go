package conversation

import (
	"strings"
	"time"
)

var dayLayouts = []string{
	"2006-01-02",
	"January 2",
	"Jan 2",
	"January 2 2006",
	"Jan 2 2006",
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseDay resolves a day token from a booking directive to a concrete date
// in loc. Tokens the model was not instructed to use still show up in
// practice, so this accepts relative words, weekday names, and a few date
// layouts. Unparseable tokens fall back to tomorrow.
func ParseDay(token string, now time.Time, loc *time.Location) time.Time {
	now = now.In(loc)
	token = strings.TrimSpace(token)
	lower := strings.ToLower(token)

	switch lower {
	case "", "today":
		if lower == "today" {
			return now
		}
		return now.AddDate(0, 0, 1)
	case "tomorrow":
		return now.AddDate(0, 0, 1)
	}

	if wd, ok := weekdays[lower]; ok {
		return nextWeekday(now, wd)
	}

	for _, layout := range dayLayouts {
		parsed, err := time.ParseInLocation(layout, token, loc)
		if err != nil {
			continue
		}
		if parsed.Year() == 0 {
			parsed = parsed.AddDate(now.Year(), 0, 0)
			// A month-day already behind us means next year.
			if parsed.Before(now.Truncate(24 * time.Hour)) {
				parsed = parsed.AddDate(1, 0, 0)
			}
		}
		return parsed
	}

	return now.AddDate(0, 0, 1)
}

// nextWeekday returns the next occurrence of wd strictly after today.
func nextWeekday(now time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days)
}
