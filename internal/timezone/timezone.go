// Package timezone converts store-local wall-clock schedules to absolute
// instants and back. Offsets are always taken from the zone rules on the
// given date, so resolution stays correct across DST transitions.
package timezone

import (
	"errors"
	"fmt"
	"strings"
	"time"

	// Embedded zoneinfo keeps resolution independent of the host image.
	_ "time/tzdata"
)

const (
	// DateLayout is the local date format accepted and produced by the resolver
	DateLayout = "2006-01-02"
	// TimeLayout is the local wall-clock format accepted and produced by the resolver
	TimeLayout = "15:04"

	// DefaultLocalTime is the wall-clock time used when a schedule has no explicit time
	DefaultLocalTime = "09:30"

	// FallbackZone is used only when the store's own zone cannot be determined
	FallbackZone = "UTC"
)

var (
	ErrInvalidDate     = errors.New("invalid local date, expected YYYY-MM-DD")
	ErrInvalidTime     = errors.New("invalid local time, expected HH:MM")
	ErrUnknownTimezone = errors.New("unknown IANA timezone")
)

// Part selects which local component Format renders
type Part string

const (
	PartDate Part = "date"
	PartTime Part = "time"
)

// Spec is a store-local schedule before resolution
type Spec struct {
	LocalDate string `json:"date"`
	LocalTime string `json:"time"`
	Timezone  string `json:"timezone"`
}

// Resolution is a resolved schedule. Fallback is set when the UTC last-resort
// zone was used instead of the store's zone.
type Resolution struct {
	Spec     Spec      `json:"spec"`
	Instant  time.Time `json:"instant"`
	Fallback bool      `json:"fallback"`
	Warning  string    `json:"warning,omitempty"`
}

// LoadLocation loads an IANA zone, rejecting empty names instead of silently returning UTC
func LoadLocation(ianaTimezone string) (*time.Location, error) {
	name := strings.TrimSpace(ianaTimezone)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnknownTimezone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTimezone, name)
	}
	return loc, nil
}

// Resolve converts a local date (YYYY-MM-DD) and time (HH:MM) in the given zone to an absolute instant.
// Wall-clock times that fall into a spring-forward gap are normalized by the Go time package.
func Resolve(localDate, localTime, ianaTimezone string) (time.Time, error) {
	loc, err := LoadLocation(ianaTimezone)
	if err != nil {
		return time.Time{}, err
	}

	d, err := time.Parse(DateLayout, strings.TrimSpace(localDate))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, localDate)
	}
	t, err := time.Parse(TimeLayout, strings.TrimSpace(localTime))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, localTime)
	}

	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc).UTC(), nil
}

// Format renders the local date or time of an instant in the given zone
func Format(instant time.Time, ianaTimezone string, part Part) (string, error) {
	loc, err := LoadLocation(ianaTimezone)
	if err != nil {
		return "", err
	}

	local := instant.In(loc)
	switch part {
	case PartDate:
		return local.Format(DateLayout), nil
	case PartTime:
		return local.Format(TimeLayout), nil
	default:
		return "", fmt.Errorf("unsupported format part %q", part)
	}
}

// GetTomorrow returns the default scheduling target: tomorrow's local date at
// DefaultLocalTime in the given zone, relative to now.
func GetTomorrow(ianaTimezone string, now time.Time) (Spec, time.Time, error) {
	loc, err := LoadLocation(ianaTimezone)
	if err != nil {
		return Spec{}, time.Time{}, err
	}

	local := now.In(loc)
	// Calendar arithmetic on the local date, not now+24h, so DST days are not skipped.
	tomorrow := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)

	spec := Spec{
		LocalDate: tomorrow.Format(DateLayout),
		LocalTime: DefaultLocalTime,
		Timezone:  loc.String(),
	}
	instant, err := Resolve(spec.LocalDate, spec.LocalTime, spec.Timezone)
	if err != nil {
		return Spec{}, time.Time{}, err
	}
	return spec, instant, nil
}
