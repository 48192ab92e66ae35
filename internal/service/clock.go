package service

import "time"

// Clock evaluates "today" in the business timezone.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Location: loc, Now: time.Now}
}

func (c Clock) now() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	if c.Now == nil {
		return time.Now().In(loc)
	}
	return c.Now().In(loc)
}

// today returns local midnight of the current business day.
func (c Clock) today() time.Time {
	return startOfDay(c.now())
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Today is the exported form of today for schedulers.
func (c Clock) Today() time.Time {
	return c.today()
}
