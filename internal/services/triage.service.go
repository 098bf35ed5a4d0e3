package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/nimasrn/inquiry-desk/pkg/logger"
	"github.com/nimasrn/inquiry-desk/pkg/prom"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrNoSelection   = errors.New("no submissions selected")
	ErrForbidden     = errors.New("staff access required")
	ErrInvalidStatus = errors.New("invalid status")
)

const recentLimit = 10

type TriageStore interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	List(ctx context.Context, f model.SubmissionFilter) ([]*model.Submission, int64, error)
	Count(ctx context.Context, f model.SubmissionFilter) (int64, error)
	CountByReason(ctx context.Context, f model.SubmissionFilter) ([]model.ReasonCount, error)
	CountBySource(ctx context.Context, f model.SubmissionFilter) ([]model.SourceCount, error)
	BulkSetStatus(ctx context.Context, ids []uuid.UUID, status model.Status, assignee *int64) (int64, error)
	BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error)
	Update(ctx context.Context, id uuid.UUID, fn func(s *model.Submission) error) (*model.Submission, error)
}

type TriageService struct {
	store TriageStore
	loc   *time.Location
}

// NewTriageService builds the staff dashboard service. Calendar dates in
// date ranges are interpreted in loc.
func NewTriageService(store TriageStore, loc *time.Location) *TriageService {
	if loc == nil {
		loc = time.UTC
	}
	return &TriageService{store: store, loc: loc}
}

// Dashboard aggregates every submission created within r.
func (s *TriageService) Dashboard(ctx context.Context, actor *model.Staff, r model.DateRange) (*model.DashboardStats, error) {
	if !actor.CanTriage() {
		return nil, ErrForbidden
	}
	from, to := r.Bounds(s.loc)
	base := model.SubmissionFilter{From: from, To: to}

	total, err := s.store.Count(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}
	fresh, err := s.store.Count(ctx, withStatus(base, model.StatusNew))
	if err != nil {
		return nil, fmt.Errorf("count new: %w", err)
	}
	resolved, err := s.store.Count(ctx, withStatus(base, model.StatusResolved))
	if err != nil {
		return nil, fmt.Errorf("count resolved: %w", err)
	}
	byReason, err := s.store.CountByReason(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("count by reason: %w", err)
	}
	bySource, err := s.store.CountBySource(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("count by source: %w", err)
	}

	all := base
	all.Desc = true
	list, _, err := s.store.List(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	recent := list
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	return &model.DashboardStats{
		Total:       total,
		New:         fresh,
		Resolved:    resolved,
		ByReason:    byReason,
		BySource:    bySource,
		Recent:      recent,
		Submissions: list,
		StartDate:   r.Start,
		EndDate:     r.End,
	}, nil
}

func withStatus(f model.SubmissionFilter, st model.Status) model.SubmissionFilter {
	f.Statuses = []model.Status{st}
	return f
}

// BulkUpdate applies action to every listed submission and returns how many
// rows changed. Unknown ids are skipped.
func (s *TriageService) BulkUpdate(ctx context.Context, actor *model.Staff, ids []uuid.UUID, action model.BulkAction) (int64, error) {
	if !actor.CanTriage() {
		return 0, ErrForbidden
	}
	if !action.Valid() {
		return 0, ErrUnknownAction
	}
	if len(ids) == 0 {
		return 0, ErrNoSelection
	}

	var (
		affected int64
		err      error
	)
	switch action {
	case model.BulkMarkResolved:
		affected, err = s.store.BulkSetStatus(ctx, ids, model.StatusResolved, &actor.ID)
	case model.BulkMarkInProgress:
		affected, err = s.store.BulkSetStatus(ctx, ids, model.StatusInProgress, &actor.ID)
	case model.BulkDelete:
		affected, err = s.store.BulkDelete(ctx, ids)
	}
	if err != nil {
		return 0, fmt.Errorf("bulk %s: %w", action, err)
	}
	prom.AddBulkAction(string(action), affected)
	logger.Info("bulk update applied", "action", action, "requested", len(ids), "affected", affected, "staff_id", actor.ID)
	return affected, nil
}

// BulkNotice is the flash message shown after a bulk action.
func BulkNotice(action model.BulkAction, affected int64) string {
	switch action {
	case model.BulkMarkResolved:
		return fmt.Sprintf("Marked %d submissions as resolved.", affected)
	case model.BulkMarkInProgress:
		return fmt.Sprintf("Marked %d submissions as in progress.", affected)
	case model.BulkDelete:
		return fmt.Sprintf("Deleted %d submissions.", affected)
	}
	return "Unknown action."
}

func (s *TriageService) Get(ctx context.Context, actor *model.Staff, id uuid.UUID) (*model.Submission, error) {
	if !actor.CanTriage() {
		return nil, ErrForbidden
	}
	return s.store.Get(ctx, id)
}

func (s *TriageService) List(ctx context.Context, actor *model.Staff, f model.SubmissionFilter) ([]*model.Submission, int64, error) {
	if !actor.CanTriage() {
		return nil, 0, ErrForbidden
	}
	return s.store.List(ctx, f)
}

// Assign hands a submission to the acting staff member.
func (s *TriageService) Assign(ctx context.Context, actor *model.Staff, id uuid.UUID) (*model.Submission, error) {
	if !actor.CanTriage() {
		return nil, ErrForbidden
	}
	return s.store.Update(ctx, id, func(sub *model.Submission) error {
		sub.Assign(actor.ID)
		return nil
	})
}

// SetStatus moves a submission to any status. Resolving also assigns it to
// the actor.
func (s *TriageService) SetStatus(ctx context.Context, actor *model.Staff, id uuid.UUID, status model.Status) (*model.Submission, error) {
	if !actor.CanTriage() {
		return nil, ErrForbidden
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.store.Update(ctx, id, func(sub *model.Submission) error {
		if status == model.StatusResolved {
			sub.MarkResolved(actor.ID)
			return nil
		}
		sub.Status = status
		return nil
	})
}

func (s *TriageService) UpdateNotes(ctx context.Context, actor *model.Staff, id uuid.UUID, notes string) (*model.Submission, error) {
	if !actor.CanTriage() {
		return nil, ErrForbidden
	}
	return s.store.Update(ctx, id, func(sub *model.Submission) error {
		sub.AdminNotes = strings.TrimSpace(notes)
		return nil
	})
}
