package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nimasrn/inquiry-desk/internal/auth"
	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/nimasrn/inquiry-desk/internal/repository"
	"github.com/nimasrn/inquiry-desk/pkg/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("authentication required")
)

type StaffStore interface {
	Create(ctx context.Context, s *model.Staff) (*model.Staff, error)
	GetByID(ctx context.Context, id int64) (*model.Staff, error)
	GetByUsername(ctx context.Context, username string) (*model.Staff, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

type TokenIssuer interface {
	Issue(s *model.Staff) (string, time.Time, error)
	Parse(token string) (*auth.Claims, error)
}

// Session is a signed-in staff member.
type Session struct {
	Staff     *model.Staff
	Token     string
	ExpiresAt time.Time
}

type AuthService struct {
	staff  StaffStore
	tokens TokenIssuer
	now    func() time.Time
}

func NewAuthService(staff StaffStore, tokens TokenIssuer) *AuthService {
	return &AuthService{staff: staff, tokens: tokens, now: time.Now}
}

// Login checks credentials and issues a token. Unknown users, wrong
// passwords and inactive accounts all yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	st, err := s.staff.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !st.IsActive || !auth.CheckPassword(st.PasswordHash, password) {
		logger.Warn("failed staff login", "username", username)
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(st)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.staff.TouchLastLogin(ctx, st.ID, now); err != nil {
		logger.Warn("failed to record last login", "staff_id", st.ID, "error", err)
	} else {
		st.LastLoginAt = &now
	}
	logger.Info("staff logged in", "staff_id", st.ID, "username", st.Username)
	return &Session{Staff: st, Token: token, ExpiresAt: exp}, nil
}

// Authenticate resolves a token to a staff member allowed to triage. The
// account is reloaded so deactivation takes effect before token expiry.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Staff, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	st, err := s.staff.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if !st.CanTriage() {
		return nil, ErrForbidden
	}
	return st, nil
}

type CreateStaffRequest struct {
	Username string
	Email    string
	FullName string
	Password string
	IsAdmin  bool
}

// CreateStaff seeds an active staff account.
func (s *AuthService) CreateStaff(ctx context.Context, req CreateStaffRequest) (*model.Staff, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" {
		return nil, errors.New("username and email are required")
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	st, err := s.staff.Create(ctx, &model.Staff{
		Username:     username,
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      true,
		IsAdmin:      req.IsAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("create staff: %w", err)
	}
	return st, nil
}
