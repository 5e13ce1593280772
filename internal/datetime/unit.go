package datetime

import (
	"fmt"
	"strings"
	"time"
)

// Unit is a calendar or clock unit used by Add, Diff and Range.
// The zero value is Seconds, which is also Diff's default.
type Unit int

const (
	Seconds Unit = iota
	Minutes
	Hours
	Days
	Weeks
	Months
	Years
)

func (u Unit) String() string {
	switch u {
	case Seconds:
		return "seconds"
	case Minutes:
		return "minutes"
	case Hours:
		return "hours"
	case Days:
		return "days"
	case Weeks:
		return "weeks"
	case Months:
		return "months"
	case Years:
		return "years"
	default:
		return fmt.Sprintf("unit(%d)", int(u))
	}
}

// ParseUnit accepts singular or plural unit names ("day", "days", ...).
func ParseUnit(s string) (Unit, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimSuffix(name, "s")
	switch name {
	case "second":
		return Seconds, nil
	case "minute":
		return Minutes, nil
	case "hour":
		return Hours, nil
	case "day":
		return Days, nil
	case "week":
		return Weeks, nil
	case "month":
		return Months, nil
	case "year":
		return Years, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, s)
}

// fixed returns the absolute length of u. Months and years have no fixed
// length and report false.
func (u Unit) fixed() (time.Duration, bool) {
	switch u {
	case Seconds:
		return time.Second, true
	case Minutes:
		return time.Minute, true
	case Hours:
		return time.Hour, true
	case Days:
		return 24 * time.Hour, true
	case Weeks:
		return 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Bounds selects whether interval endpoints count as inside.
type Bounds int

const (
	// Closed includes both endpoints. It is the zero value.
	Closed Bounds = iota
	// Open excludes both endpoints.
	Open
)

func (b Bounds) String() string {
	if b == Open {
		return "open"
	}
	return "closed"
}
