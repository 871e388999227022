package sweep

import (
	"fmt"
	"time"
)

// Daily fires once a day at Hour:Minute in Location (UTC when nil).
type Daily struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// Validate checks the time of day.
func (d Daily) Validate() error {
	if d.Hour < 0 || d.Hour > 23 || d.Minute < 0 || d.Minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidSchedule, d.Hour, d.Minute)
	}
	return nil
}

// Next returns the first run strictly after from.
func (d Daily) Next(from time.Time) time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	local := from.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.Hour, d.Minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (d Daily) String() string {
	loc := "UTC"
	if d.Location != nil {
		loc = d.Location.String()
	}
	return fmt.Sprintf("daily at %02d:%02d %s", d.Hour, d.Minute, loc)
}
