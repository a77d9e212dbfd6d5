package model

import (
	"fmt"
	"time"
)

// DailySummary is the school-wide aggregate for one calendar day.
type DailySummary struct {
	DateSend time.Time `json:"date_send"`
	SummaryCounts
	Sending bool `json:"sending"`
}

// SummaryCounts holds the aggregated totals written by every aggregation run.
type SummaryCounts struct {
	CountAllIll      int `json:"count_all_ill"`
	CountAll         int `json:"count_all"`
	CountClassClosed int `json:"count_class_closed"`
	CountIllClosed   int `json:"count_ill_closed"`
	CountAllClosed   int `json:"count_all_closed"`
}

// Add folds one class record into the totals.
func (s *SummaryCounts) Add(c ClassRecord) {
	s.CountAllIll += c.CountIll
	s.CountAll += c.CountClass
	if c.Closed {
		s.CountClassClosed++
		s.CountIllClosed += c.CountIll
		s.CountAllClosed += c.CountClass
	}
}

func (s *SummaryCounts) Validate() error {
	for name, v := range map[string]int{
		"count_all_ill":      s.CountAllIll,
		"count_all":          s.CountAll,
		"count_class_closed": s.CountClassClosed,
		"count_ill_closed":   s.CountIllClosed,
		"count_all_closed":   s.CountAllClosed,
	} {
		if v < 0 {
			return fmt.Errorf("%s is negative: %d", name, v)
		}
	}
	return nil
}
