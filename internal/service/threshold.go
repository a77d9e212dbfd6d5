package service

import (
	"time"

	"github.com/stemsi/sanmon-backend/internal/model"
)

// ProcIll returns countIll as a whole percentage of countClass.
// Exact halves round to the nearest even number (12.5 -> 12, 13.5 -> 14).
func ProcIll(countIll, countClass int) int {
	if countIll <= 0 || countClass <= 0 {
		return 0
	}
	num := countIll * 100
	q, r := num/countClass, num%countClass
	switch {
	case 2*r > countClass:
		q++
	case 2*r == countClass && q%2 == 1:
		q++
	}
	return q
}

// ThresholdRule decides class closures from illness reports.
type ThresholdRule struct {
	// Threshold is the percentage that must be exceeded to close an open class.
	Threshold int
	// DefaultReopenDays is used when a report does not say when to reopen.
	DefaultReopenDays int
}

// DefaultThresholdRule closes a class above 20% ill for a week.
var DefaultThresholdRule = ThresholdRule{Threshold: 20, DefaultReopenDays: 7}

// Apply returns cur updated by rep on the given day. The rules are checked in order:
//  1. a closed class stays closed, with its dates, unless the report asks to reopen;
//  2. a closed class asked to reopen opens;
//  3. an open class above the threshold closes from tomorrow until today+reopen days;
//  4. anything else is open.
func (r ThresholdRule) Apply(cur model.ClassRecord, rep model.ClassReport, today time.Time) model.ClassRecord {
	next := cur
	next.CountIll = rep.CountIll
	next.ProcIll = ProcIll(rep.CountIll, cur.CountClass)
	next.Date = model.Day(today)

	switch {
	case cur.Closed && !rep.ReopenRequested():
		// dates carried over from cur
	case cur.Closed:
		next.Open()
	case next.ProcIll > r.Threshold:
		next.Close(model.AddDays(today, 1), model.AddDays(today, r.reopenDays(rep)))
	default:
		next.Open()
	}
	return next
}

func (r ThresholdRule) reopenDays(rep model.ClassReport) int {
	if rep.ReopenAfterDays != nil {
		return *rep.ReopenAfterDays
	}
	if r.DefaultReopenDays > 0 {
		return r.DefaultReopenDays
	}
	return DefaultThresholdRule.DefaultReopenDays
}
