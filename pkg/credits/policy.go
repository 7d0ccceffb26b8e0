package credits

import "time"

// ResetPolicy decides when a daily refill is due: once per calendar day in
// a fixed reference timezone.
type ResetPolicy struct {
	Location *time.Location
}

// NewResetPolicy loads the named timezone; an empty name means UTC
func NewResetPolicy(timezone string) (ResetPolicy, error) {
	if timezone == "" {
		return ResetPolicy{Location: time.UTC}, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return ResetPolicy{}, err
	}
	return ResetPolicy{Location: loc}, nil
}

// DayStart returns midnight of now's calendar day in the policy timezone, in UTC
func (p ResetPolicy) DayStart(now time.Time) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).UTC()
}

// Due reports whether an account last reset at lastReset needs a refill at now
func (p ResetPolicy) Due(lastReset, now time.Time) bool {
	return lastReset.Before(p.DayStart(now))
}
