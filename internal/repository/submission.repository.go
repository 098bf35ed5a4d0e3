package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/nimasrn/inquiry-desk/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidValue is returned when an enumerated column would receive a value outside its set.
	ErrInvalidValue = errors.New("invalid enumerated value")
)

const maxUserAgentLen = 500

type SubmissionRepository struct {
	*pg.DB
	now func() time.Time
}

func NewSubmissionRepository(db *pg.DB) *SubmissionRepository {
	return &SubmissionRepository{
		DB:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new submission. The identifier, status and both timestamps
// are assigned here and any caller-provided values are ignored.
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) (*model.Submission, error) {
	if !s.Reason.Valid() {
		return nil, fmt.Errorf("%w: reason %q", ErrInvalidValue, s.Reason)
	}
	if s.Source != "" && !s.Source.Valid() {
		return nil, fmt.Errorf("%w: source %q", ErrInvalidValue, s.Source)
	}

	entity := toSubmissionEntity(s)
	now := r.now()
	entity.ID = uuid.New()
	entity.CreatedAt = now
	entity.UpdatedAt = now
	entity.Status = string(model.StatusNew)
	entity.EmailSent = false
	entity.EmailSentAt = nil
	entity.UserAgent = truncateRunes(entity.UserAgent, maxUserAgentLen)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toSubmissionModel(entity), nil
}

func (r *SubmissionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	var entity SubmissionEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toSubmissionModel(&entity), nil
}

// List returns the page selected by f and the total number of matching rows.
func (r *SubmissionRepository) List(ctx context.Context, f model.SubmissionFilter) ([]*model.Submission, int64, error) {
	q := applySubmissionFilter(r.Read(ctx).Model(&SubmissionEntity{}), f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at ASC"
	if f.Desc {
		order = "created_at DESC"
	}
	q = q.Order(order)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var entities []*SubmissionEntity
	if err := q.Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toSubmissionModels(entities), total, nil
}

func (r *SubmissionRepository) Count(ctx context.Context, f model.SubmissionFilter) (int64, error) {
	var total int64
	err := applySubmissionFilter(r.Read(ctx).Model(&SubmissionEntity{}), f).Count(&total).Error
	return total, err
}

type groupCount struct {
	Grp   string
	Total int64
}

func (r *SubmissionRepository) countBy(ctx context.Context, column string, f model.SubmissionFilter) ([]groupCount, error) {
	var rows []groupCount
	err := applySubmissionFilter(r.Read(ctx).Model(&SubmissionEntity{}), f).
		Select(column + " AS grp, COUNT(*) AS total").
		Group(column).
		Order("total DESC, grp ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *SubmissionRepository) CountByReason(ctx context.Context, f model.SubmissionFilter) ([]model.ReasonCount, error) {
	rows, err := r.countBy(ctx, "reason", f)
	if err != nil {
		return nil, err
	}
	out := make([]model.ReasonCount, len(rows))
	for i, row := range rows {
		reason := model.Reason(row.Grp)
		out[i] = model.ReasonCount{Reason: reason, Label: reason.Label(), Count: row.Total}
	}
	return out, nil
}

func (r *SubmissionRepository) CountBySource(ctx context.Context, f model.SubmissionFilter) ([]model.SourceCount, error) {
	rows, err := r.countBy(ctx, "source", f)
	if err != nil {
		return nil, err
	}
	out := make([]model.SourceCount, len(rows))
	for i, row := range rows {
		source := model.Source(row.Grp)
		out[i] = model.SourceCount{Source: source, Label: source.Label(), Count: row.Total}
	}
	return out, nil
}

// MarkEmailSent records that both notifications went out at the given time.
func (r *SubmissionRepository) MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.Write(ctx).Model(&SubmissionEntity{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"email_sent":    true,
			"email_sent_at": at.UTC(),
			"updated_at":    r.now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkSetStatus moves every listed submission to status and, when assignee is
// set, assigns it. Unknown ids are skipped; the affected count is returned.
func (r *SubmissionRepository) BulkSetStatus(ctx context.Context, ids []uuid.UUID, status model.Status, assignee *int64) (int64, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("%w: status %q", ErrInvalidValue, status)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	values := map[string]any{
		"status":     string(status),
		"updated_at": r.now(),
	}
	if assignee != nil {
		values["assigned_to_id"] = *assignee
	}
	res := r.Write(ctx).Model(&SubmissionEntity{}).Where("id IN ?", ids).Updates(values)
	return res.RowsAffected, res.Error
}

// BulkDelete removes the listed submissions permanently.
func (r *SubmissionRepository) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.Write(ctx).Where("id IN ?", ids).Delete(&SubmissionEntity{})
	return res.RowsAffected, res.Error
}

// Update loads a submission, applies fn and persists the triage fields
// (status, assignment, notes) in one transaction.
func (r *SubmissionRepository) Update(ctx context.Context, id uuid.UUID, fn func(s *model.Submission) error) (*model.Submission, error) {
	var updated *model.Submission
	err := r.WithinTransaction(ctx, func(ctx context.Context) error {
		s, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		if !s.Status.Valid() {
			return fmt.Errorf("%w: status %q", ErrInvalidValue, s.Status)
		}
		s.UpdatedAt = r.now()
		err = r.Write(ctx).Model(&SubmissionEntity{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"status":         string(s.Status),
				"assigned_to_id": s.AssignedTo,
				"admin_notes":    s.AdminNotes,
				"updated_at":     s.UpdatedAt,
			}).Error
		if err != nil {
			return err
		}
		updated = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func applySubmissionFilter(q *gorm.DB, f model.SubmissionFilter) *gorm.DB {
	if len(f.IDs) > 0 {
		q = q.Where("id IN ?", f.IDs)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.Reason != nil {
		q = q.Where("reason = ?", string(*f.Reason))
	}
	if f.Source != nil {
		q = q.Where("source = ?", string(*f.Source))
	}
	if f.Email != nil && *f.Email != "" {
		q = q.Where("LOWER(email) = LOWER(?)", *f.Email)
	}
	if f.EmailSent != nil {
		q = q.Where("email_sent = ?", *f.EmailSent)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("created_at < ?", f.To.UTC())
	}
	return q
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
