package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/sanmon-backend/internal/config"
	"github.com/stemsi/sanmon-backend/internal/mailer"
	"github.com/stemsi/sanmon-backend/internal/model"
	"github.com/stemsi/sanmon-backend/internal/repository"
)

// Outcome is the result of one notification attempt.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// NotificationResult describes what RunNotification did and why.
type NotificationResult struct {
	Outcome Outcome   `json:"outcome"`
	Reason  string    `json:"reason,omitempty"`
	Date    time.Time `json:"date"`
}

// Skip reasons.
const (
	ReasonNotBusinessDay = "not a business day"
	ReasonOutsideWindow  = "outside dispatch window"
	ReasonNoSummary      = "no summary for today"
	ReasonAlreadySent    = "already sent"
	ReasonInProgress     = "in progress"
)

// NotificationConfig fixes sender, recipients and when a report may go out.
type NotificationConfig struct {
	School       string
	From         string
	To           []string
	Window       config.Window
	BusinessDays config.Weekdays
}

// NotificationService mails the daily summary at most once per day.
// The summary row's sending flag is the only record of a completed dispatch.
type NotificationService struct {
	store repository.Store
	mail  mailer.Mailer
	cfg   NotificationConfig
	loc   *time.Location
	log   zerolog.Logger

	// held from the sending check until the flag is set
	dispatch sync.Mutex
}

// NewNotificationService creates a new NotificationService. Clock checks use loc.
func NewNotificationService(store repository.Store, m mailer.Mailer, cfg NotificationConfig, loc *time.Location, log zerolog.Logger) *NotificationService {
	if loc == nil {
		loc = time.Local
	}
	return &NotificationService{
		store: store,
		mail:  m,
		cfg:   cfg,
		loc:   loc,
		log:   log.With().Str("component", "notification_service").Logger(),
	}
}

// RunNotification sends today's report if every precondition holds:
// business day, inside the window, a summary row exists and is not yet sent.
// A failed delivery leaves the row unsent so a later call can retry.
// A call made while another dispatch is under way is skipped.
func (s *NotificationService) RunNotification(ctx context.Context, now time.Time) (NotificationResult, error) {
	local := now.In(s.loc)
	day := model.Day(local)
	res := NotificationResult{Outcome: OutcomeSkipped, Date: day}

	if !s.dispatch.TryLock() {
		res.Reason = ReasonInProgress
		return res, nil
	}
	defer s.dispatch.Unlock()

	if !s.cfg.BusinessDays.Contains(local.Weekday()) {
		res.Reason = ReasonNotBusinessDay
		return res, nil
	}
	if !s.cfg.Window.Contains(local) {
		res.Reason = ReasonOutsideWindow
		return res, nil
	}

	summary, err := s.store.GetSummary(ctx, day)
	if errors.Is(err, repository.ErrNotFound) {
		res.Reason = ReasonNoSummary
		return res, nil
	}
	if err != nil {
		res.Outcome = OutcomeFailed
		return res, storageError("get summary", err)
	}
	if summary.Sending {
		res.Reason = ReasonAlreadySent
		return res, nil
	}

	subject, body, err := RenderReport(s.cfg.School, *summary)
	if err != nil {
		res.Outcome = OutcomeFailed
		return res, err
	}

	log := s.log.With().Str("date", day.Format(time.DateOnly)).Logger()
	msg := mailer.Message{From: s.cfg.From, To: s.cfg.To, Subject: subject, Body: body}
	if err := s.mail.SendPlainText(ctx, msg); err != nil {
		log.Warn().Err(err).Msg("daily report delivery failed, will retry within window")
		res.Outcome = OutcomeFailed
		return res, fmt.Errorf("send report: %w: %w", ErrMail, err)
	}

	marked, err := s.store.MarkSummarySent(ctx, day)
	if err != nil {
		// The mail is out but the flag is not set; a later tick may send it again.
		log.Error().Err(err).Msg("daily report sent but could not be marked as sent")
		res.Outcome = OutcomeFailed
		return res, storageError("mark summary sent", err)
	}
	if !marked {
		log.Warn().Msg("daily report was marked as sent by another worker")
		res.Reason = ReasonAlreadySent
		return res, nil
	}

	log.Info().Strs("to", s.cfg.To).Int("count_all_ill", summary.CountAllIll).Msg("daily report sent")
	res.Outcome = OutcomeSent
	return res, nil
}

// ReportMissed logs an error when a business day's window has closed without a
// successful dispatch. It returns true when the day's report was missed.
func (s *NotificationService) ReportMissed(ctx context.Context, now time.Time) (bool, error) {
	local := now.In(s.loc)
	if !s.cfg.BusinessDays.Contains(local.Weekday()) || !s.cfg.Window.Closed(local) {
		return false, nil
	}

	day := model.Day(local)
	log := s.log.With().Str("date", day.Format(time.DateOnly)).Str("window", s.cfg.Window.String()).Logger()

	summary, err := s.store.GetSummary(ctx, day)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.Error().Msg("daily report missed: no summary was aggregated")
		return true, nil
	case err != nil:
		return false, storageError("get summary", err)
	case !summary.Sending:
		log.Error().Msg("daily report missed: dispatch window closed without a successful send")
		return true, nil
	}
	return false, nil
}
