package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-03-15", NewDate(2024, 3, 15), true},
		{"15-03-2024", NewDate(2024, 3, 15), true},
		{"2024/03/15", NewDate(2024, 3, 15), true},
		{" 2024-03-15 ", NewDate(2024, 3, 15), true},
		{"15/03/2024", Date{}, false},
		{"March 15, 2024", Date{}, false},
		{"", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q unexpected error: %v", tc.in, err)
			}
			if !got.Equal(tc.want.Time) {
				t.Fatalf("%q expected %v, got %v", tc.in, tc.want, got)
			}
		} else {
			if !errors.Is(err, ErrUnparsableDate) {
				t.Fatalf("%q expected ErrUnparsableDate, got %v", tc.in, err)
			}
		}
	}
}

func TestDateValidate(t *testing.T) {
	if err := NewDate(2025, 1, 1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Date{Time: time.Time{}}).Validate(); err == nil {
		t.Fatalf("expected error for zero date")
	}
}

func TestDateFormats(t *testing.T) {
	d := NewDate(2024, 3, 5)
	if got := d.ISO(); got != "2024-03-05" {
		t.Fatalf("ISO expected 2024-03-05, got %q", got)
	}
	if got := d.Display(); got != "05-03-2024" {
		t.Fatalf("Display expected 05-03-2024, got %q", got)
	}
	if got := (Date{}).ISO(); got != "" {
		t.Fatalf("zero date ISO expected empty, got %q", got)
	}
}

func TestMonthKey(t *testing.T) {
	d := NewDate(2024, 3, 15)
	k := d.MonthKey()
	if k.Year != 2024 || k.Month != 3 {
		t.Fatalf("expected 2024-03, got %v", k)
	}
	if k.String() != "2024-03" {
		t.Fatalf("expected \"2024-03\", got %q", k.String())
	}

	earlier := MonthKey{Year: 2023, Month: 12}
	if !earlier.Before(k) {
		t.Fatalf("2023-12 should sort before 2024-03")
	}
	if k.Before(earlier) {
		t.Fatalf("2024-03 should not sort before 2023-12")
	}
	if k.Before(k) {
		t.Fatalf("a month should not sort before itself")
	}
}
