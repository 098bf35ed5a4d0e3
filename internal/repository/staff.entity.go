package repository

import (
	"time"

	"github.com/nimasrn/inquiry-desk/internal/model"
)

type StaffEntity struct {
	ID           int64      `gorm:"primaryKey;autoIncrement;column:id"`
	Username     string     `gorm:"column:username;size:150;not null;uniqueIndex"`
	Email        string     `gorm:"column:email;size:254;not null;uniqueIndex"`
	FullName     string     `gorm:"column:full_name;size:150;not null;default:''"`
	PasswordHash string     `gorm:"column:password_hash;size:255;not null"`
	IsActive     bool       `gorm:"column:is_active;not null"`
	IsStaff      bool       `gorm:"column:is_staff;not null"`
	IsAdmin      bool       `gorm:"column:is_admin;not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (StaffEntity) TableName() string {
	return "staff"
}

func toStaffEntity(s *model.Staff) *StaffEntity {
	if s == nil {
		return nil
	}
	return &StaffEntity{
		ID:           s.ID,
		Username:     s.Username,
		Email:        s.Email,
		FullName:     s.FullName,
		PasswordHash: s.PasswordHash,
		IsActive:     s.IsActive,
		IsStaff:      s.IsStaff,
		IsAdmin:      s.IsAdmin,
		LastLoginAt:  s.LastLoginAt,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func toStaffModel(e *StaffEntity) *model.Staff {
	if e == nil {
		return nil
	}
	return &model.Staff{
		ID:           e.ID,
		Username:     e.Username,
		Email:        e.Email,
		FullName:     e.FullName,
		PasswordHash: e.PasswordHash,
		IsActive:     e.IsActive,
		IsStaff:      e.IsStaff,
		IsAdmin:      e.IsAdmin,
		LastLoginAt:  e.LastLoginAt,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}
