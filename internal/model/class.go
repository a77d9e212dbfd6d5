package model

import (
	"strings"
	"time"
)

// ClassRecord is the illness state of one school class.
// Closed records always carry both DateOpen and DateClosed; open records carry neither.
type ClassRecord struct {
	NameClass  string     `json:"name_class"`
	ManClass   string     `json:"man_class"`
	CountClass int        `json:"count_class"`
	CountIll   int        `json:"count_ill"`
	ProcIll    int        `json:"proc_ill"`
	Closed     bool       `json:"closed"`
	Date       time.Time  `json:"date"`
	DateOpen   *time.Time `json:"date_open"`
	DateClosed *time.Time `json:"date_closed"`
}

// ClosureConsistent reports whether the closure flag agrees with the closure dates.
func (c *ClassRecord) ClosureConsistent() bool {
	if c.Closed {
		return c.DateOpen != nil && c.DateClosed != nil
	}
	return c.DateOpen == nil && c.DateClosed == nil
}

// Open clears the closure flag and both closure dates.
func (c *ClassRecord) Open() {
	c.Closed = false
	c.DateOpen = nil
	c.DateClosed = nil
}

// Close marks the class closed between the given dates.
func (c *ClassRecord) Close(from, until time.Time) {
	from, until = Day(from), Day(until)
	c.Closed = true
	c.DateClosed = &from
	c.DateOpen = &until
}

// ClassRoster registers a class or edits its contact and roster size.
type ClassRoster struct {
	NameClass  string
	ManClass   string
	CountClass int
}

// Validate returns field errors, or nil when the roster is usable.
func (r *ClassRoster) Validate() map[string]string {
	fields := make(map[string]string)
	if strings.TrimSpace(r.NameClass) == "" {
		fields["name_class"] = "name_class is required"
	}
	if r.CountClass <= 0 {
		fields["count_class"] = "count_class must be greater than 0"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// ClassReport is a daily illness report for one class.
// Closed is nil when the reporter expresses no opinion; false asks to reopen a closed class.
// ReopenAfterDays is nil to use the configured default.
type ClassReport struct {
	NameClass       string
	CountIll        int
	Closed          *bool
	ReopenAfterDays *int
}

// ReopenRequested reports whether the reporter explicitly asked to reopen.
func (r *ClassReport) ReopenRequested() bool {
	return r.Closed != nil && !*r.Closed
}

func (r *ClassReport) Validate() map[string]string {
	fields := make(map[string]string)
	if strings.TrimSpace(r.NameClass) == "" {
		fields["name_class"] = "name_class is required"
	}
	if r.CountIll < 0 {
		fields["count_ill"] = "count_ill must not be negative"
	}
	if r.ReopenAfterDays != nil && *r.ReopenAfterDays < 1 {
		fields["reopen_after_days"] = "reopen_after_days must be at least 1"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// ClassClosure is an administrative closure or reopening of a class.
type ClassClosure struct {
	NameClass  string
	Closed     bool
	DateClosed *time.Time
	DateOpen   *time.Time
}

func (c *ClassClosure) Validate() map[string]string {
	fields := make(map[string]string)
	if strings.TrimSpace(c.NameClass) == "" {
		fields["name_class"] = "name_class is required"
	}
	if c.Closed {
		if c.DateClosed == nil {
			fields["date_closed"] = "date_closed is required when closing"
		}
		if c.DateOpen == nil {
			fields["date_open"] = "date_open is required when closing"
		}
		if c.DateClosed != nil && c.DateOpen != nil && Day(*c.DateOpen).Before(Day(*c.DateClosed)) {
			fields["date_open"] = "date_open must not be before date_closed"
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// LessClassName orders class names the way the school lists them:
// shorter names first ("5а" before "10а"), then lexically.
func LessClassName(a, b string) bool {
	la, lb := len([]rune(a)), len([]rune(b))
	if la != lb {
		return la < lb
	}
	return a < b
}
