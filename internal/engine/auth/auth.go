package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// RoleError indicates the user lacks the role an operation needs.
type RoleError struct {
	Role string
}

func (e RoleError) Error() string {
	return fmt.Sprintf("%s role required", e.Role)
}

// ErrUnknownUser is returned when no user row exists.
var ErrUnknownUser = errors.New("unknown user")

// Service answers role questions backed by SQL.
type Service struct {
	DB *sql.DB
}

func (s Service) UserRole(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user_id required")
	}
	var role string
	err := s.DB.QueryRowContext(ctx, `SELECT role FROM users WHERE id=?`, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUnknownUser
	}
	return role, err
}

func (s Service) HasRole(ctx context.Context, userID, role string) (bool, error) {
	got, err := s.UserRole(ctx, userID)
	if err != nil {
		return false, err
	}
	return got == role, nil
}

// RequireRole returns RoleError when the user exists but holds another role.
func (s Service) RequireRole(ctx context.Context, userID, role string) error {
	ok, err := s.HasRole(ctx, userID, role)
	if err != nil {
		return err
	}
	if !ok {
		return RoleError{Role: role}
	}
	return nil
}
