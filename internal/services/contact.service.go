package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/inquiry-desk/internal/mailer"
	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/nimasrn/inquiry-desk/internal/throttle"
	"github.com/nimasrn/inquiry-desk/internal/validation"
	"github.com/nimasrn/inquiry-desk/pkg/logger"
	"github.com/nimasrn/inquiry-desk/pkg/prom"
)

var (
	ErrSubmissionFailed = errors.New("submission could not be processed")
	ErrThrottled        = errors.New("too many submissions")
)

// Submission channels, used as metric labels.
const (
	ChannelWeb = "web"
	ChannelAPI = "api"
)

type SubmissionStore interface {
	Create(ctx context.Context, s *model.Submission) (*model.Submission, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	List(ctx context.Context, f model.SubmissionFilter) ([]*model.Submission, int64, error)
	MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error
}

type Notifier interface {
	Dispatch(ctx context.Context, s *model.Submission) error
}

type ContactValidator interface {
	Validate(p validation.Payload) (*model.ContactForm, validation.FieldErrors)
	ValidateField(name, value string) validation.FieldResult
}

// SubmitResult is what the caller may show after an accepted submission.
type SubmitResult struct {
	Submission *model.Submission
	EmailSent  bool
	Message    string
}

type ContactService struct {
	store           SubmissionStore
	notifier        Notifier
	validator       ContactValidator
	limiter         throttle.Limiter
	dispatchTimeout time.Duration
	now             func() time.Time
}

func NewContactService(store SubmissionStore, notifier Notifier, validator ContactValidator, limiter throttle.Limiter) *ContactService {
	if limiter == nil {
		limiter = throttle.Nop{}
	}
	return &ContactService{
		store:     store,
		notifier:  notifier,
		validator: validator,
		limiter:   limiter,
		now:       time.Now,
	}
}

// WithDispatchTimeout bounds one Dispatch call, both notifications included.
// Zero leaves the caller's context deadline as the only limit.
func (s *ContactService) WithDispatchTimeout(d time.Duration) *ContactService {
	s.dispatchTimeout = d
	return s
}

func (s *ContactService) dispatch(ctx context.Context, sub *model.Submission) error {
	if s.dispatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.dispatchTimeout)
		defer cancel()
	}
	return s.notifier.Dispatch(ctx, sub)
}

// Submit runs one inquiry through validation, throttle, persistence and
// notification. Validation failures are returned as validation.FieldErrors.
// A failed dispatch leaves the stored submission with email_sent=false and is
// not reported as an error.
func (s *ContactService) Submit(ctx context.Context, p validation.Payload, meta model.ClientMeta, channel string) (*SubmitResult, error) {
	form, ferrs := s.validator.Validate(p)
	if ferrs != nil {
		prom.IncValidationFailure(channel)
		logger.Debug("submission rejected by validation", "channel", channel, "fields", len(ferrs))
		return nil, ferrs
	}
	if form.NameInEmail {
		logger.Debug("submitter name appears in email address", "email", form.Email)
	}

	// Only payloads that would be stored count against the client's quota.
	if meta.IPAddress != "" {
		d, err := s.limiter.Allow(ctx, meta.IPAddress)
		switch {
		case err != nil:
			logger.Warn("throttle unavailable, allowing submission", "ip", meta.IPAddress, "error", err)
		case !d.Allowed:
			prom.IncThrottled(channel)
			logger.Info("submission throttled", "ip", meta.IPAddress, "retry_after", d.RetryAfter.String())
			return nil, ErrThrottled
		}
	}

	created, err := s.store.Create(ctx, &model.Submission{
		Name:      form.Name,
		Email:     form.Email,
		Phone:     form.Phone,
		Reason:    form.Reason,
		Source:    form.Source,
		Message:   form.Message,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		logger.Error("failed to store submission", "channel", channel, "error", err)
		return nil, fmt.Errorf("%w: store: %v", ErrSubmissionFailed, err)
	}
	prom.IncSubmission(channel, string(created.Reason))
	logger.Info("submission stored", "submission_id", created.ID, "reason", created.Reason, "channel", channel)

	res := &SubmitResult{Submission: created, Message: SuccessMessage(created.Reason)}

	if err := s.dispatch(ctx, created); err != nil {
		logger.Error("notification dispatch failed", "submission_id", created.ID, "error", err)
		return res, nil
	}
	if err := s.markSent(ctx, created); err != nil {
		logger.Error("failed to record email bookkeeping", "submission_id", created.ID, "error", err)
		return nil, fmt.Errorf("%w: mark sent: %v", ErrSubmissionFailed, err)
	}
	res.EmailSent = true
	return res, nil
}

// ValidateField checks a single named field.
func (s *ContactService) ValidateField(name, value string) validation.FieldResult {
	return s.validator.ValidateField(name, value)
}

// Redispatch sends both notifications again for an existing submission and
// records the bookkeeping on success.
func (s *ContactService) Redispatch(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	sub, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.dispatch(ctx, sub); err != nil {
		return nil, err
	}
	if err := s.markSent(ctx, sub); err != nil {
		return nil, err
	}
	logger.Info("notifications re-sent", "submission_id", sub.ID)
	return sub, nil
}

// PendingNotifications lists submissions created since the given time whose
// notifications were never confirmed, oldest first.
func (s *ContactService) PendingNotifications(ctx context.Context, since time.Time, limit int) ([]*model.Submission, error) {
	sent := false
	list, _, err := s.store.List(ctx, model.SubmissionFilter{
		EmailSent: &sent,
		From:      &since,
		Limit:     limit,
	})
	return list, err
}

func (s *ContactService) markSent(ctx context.Context, sub *model.Submission) error {
	at := s.now().UTC()
	if err := s.store.MarkEmailSent(ctx, sub.ID, at); err != nil {
		return err
	}
	sub.EmailSent = true
	sub.EmailSentAt = &at
	return nil
}

// SuccessMessage is the confirmation shown to the submitter for reason r.
func SuccessMessage(r model.Reason) string {
	return mailer.Headline(r)
}

// GenericErrorMessage is shown when an accepted payload could not be processed.
func GenericErrorMessage(sitePhone string) string {
	return "There was an error processing your request. Please try again later or call us directly at " + sitePhone + "."
}
