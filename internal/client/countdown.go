package client

import (
	"fmt"
	"time"
)

// Remaining is the time left until a stage ends.
type Remaining struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

// Countdown splits the time from now until end. It is zero once end has passed.
func Countdown(end, now time.Time) Remaining {
	d := end.Sub(now)
	if d <= 0 {
		return Remaining{}
	}
	total := int(d / time.Second)
	return Remaining{
		Days:    total / 86400,
		Hours:   total % 86400 / 3600,
		Minutes: total % 3600 / 60,
		Seconds: total % 60,
	}
}

// IsZero reports whether no time remains.
func (r Remaining) IsZero() bool {
	return r == Remaining{}
}

func (r Remaining) String() string {
	return fmt.Sprintf("%dd %02dh %02dm %02ds", r.Days, r.Hours, r.Minutes, r.Seconds)
}
