package repository

import (
	"time"

	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/nimasrn/inquiry-desk/pkg/pg"
)

type SubmissionEntity struct {
	pg.UUIDModel
	Name         string     `gorm:"column:name;size:100;not null"`
	Email        string     `gorm:"column:email;size:254;not null;index"`
	Phone        string     `gorm:"column:phone;size:20;not null;default:''"`
	Reason       string     `gorm:"column:reason;size:20;not null;index"`
	Source       string     `gorm:"column:source;size:20;not null;default:''"`
	Message      string     `gorm:"column:message;type:text;not null"`
	IPAddress    string     `gorm:"column:ip_address;size:45;not null;default:''"`
	UserAgent    string     `gorm:"column:user_agent;size:500;not null;default:''"`
	Status       string     `gorm:"column:status;size:20;not null;default:new;index"`
	AssignedToID *int64     `gorm:"column:assigned_to_id"`
	AdminNotes   string     `gorm:"column:admin_notes;type:text;not null;default:''"`
	EmailSent    bool       `gorm:"column:email_sent;not null;default:false"`
	EmailSentAt  *time.Time `gorm:"column:email_sent_at"`
}

func (SubmissionEntity) TableName() string {
	return "contact_submissions"
}

func toSubmissionEntity(s *model.Submission) *SubmissionEntity {
	if s == nil {
		return nil
	}
	return &SubmissionEntity{
		UUIDModel: pg.UUIDModel{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		},
		Name:         s.Name,
		Email:        s.Email,
		Phone:        s.Phone,
		Reason:       string(s.Reason),
		Source:       string(s.Source),
		Message:      s.Message,
		IPAddress:    s.IPAddress,
		UserAgent:    s.UserAgent,
		Status:       string(s.Status),
		AssignedToID: s.AssignedTo,
		AdminNotes:   s.AdminNotes,
		EmailSent:    s.EmailSent,
		EmailSentAt:  s.EmailSentAt,
	}
}

func toSubmissionModel(e *SubmissionEntity) *model.Submission {
	if e == nil {
		return nil
	}
	return &model.Submission{
		ID:          e.ID,
		Name:        e.Name,
		Email:       e.Email,
		Phone:       e.Phone,
		Reason:      model.Reason(e.Reason),
		Source:      model.Source(e.Source),
		Message:     e.Message,
		IPAddress:   e.IPAddress,
		UserAgent:   e.UserAgent,
		Status:      model.Status(e.Status),
		AssignedTo:  e.AssignedToID,
		AdminNotes:  e.AdminNotes,
		EmailSent:   e.EmailSent,
		EmailSentAt: e.EmailSentAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toSubmissionModels(entities []*SubmissionEntity) []*model.Submission {
	if entities == nil {
		return nil
	}
	models := make([]*model.Submission, len(entities))
	for i, e := range entities {
		models[i] = toSubmissionModel(e)
	}
	return models
}

// Entities lists every table this package maps, for gorm AutoMigrate on
// databases goose does not manage.
func Entities() []any {
	return []any{&StaffEntity{}, &SubmissionEntity{}}
}
