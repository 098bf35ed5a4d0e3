package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/nimasrn/inquiry-desk/pkg/pg"
	"gorm.io/gorm"
)

var ErrDuplicateStaff = errors.New("staff username or email already exists")

type StaffRepository struct {
	*pg.DB
}

func NewStaffRepository(db *pg.DB) *StaffRepository {
	return &StaffRepository{db}
}

func (r *StaffRepository) Create(ctx context.Context, s *model.Staff) (*model.Staff, error) {
	entity := toStaffEntity(s)
	entity.ID = 0

	var existing int64
	err := r.Read(ctx).Model(&StaffEntity{}).
		Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", s.Username, s.Email).
		Count(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrDuplicateStaff
	}

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toStaffModel(entity), nil
}

func (r *StaffRepository) GetByID(ctx context.Context, id int64) (*model.Staff, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *StaffRepository) GetByUsername(ctx context.Context, username string) (*model.Staff, error) {
	return r.first(ctx, "LOWER(username) = ?", strings.ToLower(username))
}

func (r *StaffRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.Write(ctx).Model(&StaffEntity{}).
		Where("id = ?", id).
		Updates(map[string]any{"last_login_at": at.UTC()}).Error
}

func (r *StaffRepository) first(ctx context.Context, query string, args ...any) (*model.Staff, error) {
	var entity StaffEntity
	if err := r.Read(ctx).Where(query, args...).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toStaffModel(&entity), nil
}
