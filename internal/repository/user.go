package repository

import (
	"context"
	"errors"
	"fmt"

	"friendboard/internal/domain"
)

// ErrNotFound indicates the requested user does not exist.
var ErrNotFound = errors.New("user not found")

// DuplicateError reports a violated uniqueness constraint. Field names the
// colliding attribute ("nickname" or "email").
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

// UserUpdate carries the mutable fields of an update. Nil pointers leave
// the stored value untouched.
type UserUpdate struct {
	Nickname *string
	Image    *domain.ImageRef
}

// UserRepository defines persistence operations for User entities.
// Create relies on store level uniqueness constraints rather than a
// check-then-insert sequence, so a racing duplicate surfaces as
// *DuplicateError instead of a second record.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByNickname(ctx context.Context, nickname string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.UserSummary, error)
}
