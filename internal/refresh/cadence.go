package refresh

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Cadence decides when the next scheduled refresh is due.
type Cadence interface {
	Next(after time.Time) time.Time
}

// Every returns a fixed-interval cadence.
func Every(d time.Duration) Cadence {
	return interval(d)
}

type interval time.Duration

func (i interval) Next(after time.Time) time.Time {
	return after.Add(time.Duration(i))
}

// Cron parses a standard five-field cron expression (or a descriptor such as
// "@every 1m") into a cadence.
func Cron(spec string) (Cadence, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse refresh schedule %q: %w", spec, err)
	}
	return sched, nil
}

// CadenceFor picks the cron schedule when one is set and falls back to the
// fixed interval otherwise.
func CadenceFor(schedule string, every time.Duration) (Cadence, error) {
	if schedule != "" {
		return Cron(schedule)
	}
	return Every(every), nil
}
