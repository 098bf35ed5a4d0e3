package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/inquiry-desk/internal/auth"
	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/nimasrn/inquiry-desk/internal/throttle"
	"github.com/stretchr/testify/mock"
)

type MockSubmissionStore struct {
	mock.Mock
}

func (m *MockSubmissionStore) Create(ctx context.Context, s *model.Submission) (*model.Submission, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(context.Context, *model.Submission) *model.Submission); ok {
		return fn(ctx, s), args.Error(1)
	}
	return args.Get(0).(*model.Submission), args.Error(1)
}

func (m *MockSubmissionStore) Get(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Submission), args.Error(1)
}

func (m *MockSubmissionStore) List(ctx context.Context, f model.SubmissionFilter) ([]*model.Submission, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Submission), args.Get(1).(int64), args.Error(2)
}

func (m *MockSubmissionStore) MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockSubmissionStore) Count(ctx context.Context, f model.SubmissionFilter) (int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSubmissionStore) CountByReason(ctx context.Context, f model.SubmissionFilter) ([]model.ReasonCount, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReasonCount), args.Error(1)
}

func (m *MockSubmissionStore) CountBySource(ctx context.Context, f model.SubmissionFilter) ([]model.SourceCount, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SourceCount), args.Error(1)
}

func (m *MockSubmissionStore) BulkSetStatus(ctx context.Context, ids []uuid.UUID, status model.Status, assignee *int64) (int64, error) {
	args := m.Called(ctx, ids, status, assignee)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSubmissionStore) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSubmissionStore) Update(ctx context.Context, id uuid.UUID, fn func(s *model.Submission) error) (*model.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	s := args.Get(0).(*model.Submission)
	if err := fn(s); err != nil {
		return nil, err
	}
	return s, args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Dispatch(ctx context.Context, s *model.Submission) error {
	return m.Called(ctx, s).Error(0)
}

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, key string) (throttle.Decision, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(throttle.Decision), args.Error(1)
}

type MockStaffStore struct {
	mock.Mock
}

func (m *MockStaffStore) Create(ctx context.Context, s *model.Staff) (*model.Staff, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Staff), args.Error(1)
}

func (m *MockStaffStore) GetByID(ctx context.Context, id int64) (*model.Staff, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Staff), args.Error(1)
}

func (m *MockStaffStore) GetByUsername(ctx context.Context, username string) (*model.Staff, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Staff), args.Error(1)
}

func (m *MockStaffStore) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

var _ TokenIssuer = (*auth.TokenManager)(nil)
