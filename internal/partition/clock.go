// internal/partition/clock.go
package partition

import "time"

// Clock
// ------------------------------------------------------------
// Resolves "now" in the reference timezone used for the
// year=/month=/day=/hour= partition.
//
// The zone is explicit configuration (PARTITION_TIMEZONE). Batch readers
// scan by these directories, so changing it on a live bucket shifts
// every partition boundary; pick it once per bucket.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock returns a Clock for loc backed by time.Now. A nil loc means UTC.
func NewClock(loc *time.Location) *Clock {
	return NewClockFunc(loc, time.Now)
}

// NewClockFunc is NewClock with an explicit time source (tests pin it).
func NewClockFunc(loc *time.Location, now func() time.Time) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, now: now}
}

// Now returns the current instant in the reference timezone.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Location returns the reference timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}
