package model

import "time"

type Staff struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name,omitempty"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	IsStaff      bool       `json:"is_staff"`
	IsAdmin      bool       `json:"is_admin"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CanTriage reports whether the account may use the staff dashboard.
func (s *Staff) CanTriage() bool {
	return s != nil && s.IsActive && (s.IsStaff || s.IsAdmin)
}

func (s *Staff) DisplayName() string {
	if s.FullName != "" {
		return s.FullName
	}
	return s.Username
}
