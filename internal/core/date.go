package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Date is a calendar date; the time-of-day part is always midnight UTC.
type Date struct {
	time.Time
}

// dateLayouts are the formats the order book accepts, in priority order.
// ISO is the storage format, DD-MM-YYYY the display format.
var dateLayouts = []string{"2006-01-02", "02-01-2006", "2006/01/02"}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date string in any of the accepted layouts.
// Fails with ErrUnparsableDate instead of silently dropping bad input.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrUnparsableDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t.UTC()}, nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrUnparsableDate, s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// ISO renders the storage format (YYYY-MM-DD).
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// Display renders the format shown in grids (DD-MM-YYYY).
func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02-01-2006")
}

// MonthKey identifies a calendar month for aggregation.
type MonthKey struct {
	Year  int
	Month int // 1-12
}

func (d Date) MonthKey() MonthKey {
	return MonthKey{Year: d.Year(), Month: d.Month()}
}

// Before orders month keys chronologically.
func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}
