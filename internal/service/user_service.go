package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"friendboard/internal/auth"
	"friendboard/internal/domain"
	"friendboard/internal/media"
	"friendboard/internal/repository"
)

// Credentials bundles a user view with a freshly minted bearer token.
type Credentials struct {
	User  *domain.User
	Token string
}

// RegisterInput carries a registration request. Image is the transient
// local copy of the uploaded avatar; ownership passes to the binder once
// the upload succeeds.
type RegisterInput struct {
	Nickname string
	Email    string
	Password string
	Image    *media.TransientUpload
}

// UpdateInput carries a profile update. An empty Nickname keeps the stored
// one; a nil Image keeps the current avatar.
type UpdateInput struct {
	Nickname string
	Image    *media.TransientUpload
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*Credentials, error)
	Authenticate(ctx context.Context, nickname, password string) (*Credentials, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	ListAll(ctx context.Context) ([]domain.UserSummary, error)
	Update(ctx context.Context, id string, in UpdateInput) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}

type userService struct {
	users  repository.UserRepository
	binder *media.Binder
	tokens *auth.TokenIssuer
	logger *logrus.Logger
	locks  *keyedMutex
}

func NewUserService(users repository.UserRepository, binder *media.Binder, tokens *auth.TokenIssuer, logger *logrus.Logger) UserService {
	return &userService{
		users:  users,
		binder: binder,
		tokens: tokens,
		logger: logger,
		locks:  newKeyedMutex(),
	}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*Credentials, error) {
	nickname := strings.TrimSpace(in.Nickname)
	email := strings.TrimSpace(in.Email)
	password := strings.TrimSpace(in.Password)

	if nickname == "" {
		return nil, &ValidationError{Field: "nickname"}
	}
	if email == "" {
		return nil, &ValidationError{Field: "email"}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password"}
	}
	if in.Image == nil {
		return nil, &ValidationError{Field: "image"}
	}

	// Friendly field attribution; the constrained insert below remains
	// the authority on uniqueness.
	if err := s.checkAvailable(ctx, nickname, email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	ref, err := s.binder.BindNew(ctx, in.Image)
	if err != nil {
		if errors.Is(err, media.ErrImageRequired) {
			return nil, &ValidationError{Field: "image"}
		}
		return nil, upstream(err)
	}

	user := &domain.User{
		ID:             uuid.NewString(),
		Nickname:       nickname,
		Email:          email,
		PasswordHash:   hash,
		ImageURL:       ref.URL,
		ImageStorageID: ref.StorageID,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// the record is the last write; drop the blob so nothing leaks
		if relErr := s.binder.Release(ctx, ref.StorageID); relErr != nil {
			s.logger.Warnf("orphaned blob object %s after failed insert: %v", ref.StorageID, relErr)
		}
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			return nil, dup
		}
		return nil, upstream(err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	return &Credentials{User: sanitizeUser(user), Token: token}, nil
}

func (s *userService) Authenticate(ctx context.Context, nickname, password string) (*Credentials, error) {
	nickname = strings.TrimSpace(nickname)
	password = strings.TrimSpace(password)
	if nickname == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByNickname(ctx, nickname)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, upstream(err)
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	return &Credentials{User: sanitizeUser(user), Token: token}, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, upstream(err)
	}
	return sanitizeUser(user), nil
}

func (s *userService) ListAll(ctx context.Context) ([]domain.UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, upstream(err)
	}
	return users, nil
}

func (s *userService) Update(ctx context.Context, id string, in UpdateInput) (*domain.User, error) {
	s.locks.lock(id)
	defer s.locks.unlock(id)

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, upstream(err)
	}

	current := domain.ImageRef{URL: user.ImageURL, StorageID: user.ImageStorageID}
	ref, replaced, err := s.binder.Rebind(ctx, current, in.Image)
	if err != nil {
		return nil, upstream(err)
	}

	upd := repository.UserUpdate{}
	if nickname := strings.TrimSpace(in.Nickname); nickname != "" {
		upd.Nickname = &nickname
	}
	if replaced {
		upd.Image = &ref
	}

	updated, err := s.users.Update(ctx, id, upd)
	if err != nil {
		if replaced {
			// old object stays authoritative; the uploaded replacement is
			// an accepted orphan, reported rather than silently fixed
			s.logger.Warnf("orphaned blob object %s after failed profile update for user %s", ref.StorageID, id)
		}
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			return nil, dup
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, upstream(err)
	}

	if replaced {
		if err := s.binder.Release(ctx, current.StorageID); err != nil {
			s.logger.Warnf("release replaced blob object %s for user %s: %v", current.StorageID, id, err)
		}
	}

	return sanitizeUser(updated), nil
}

func (s *userService) Delete(ctx context.Context, id string) error {
	s.locks.lock(id)
	defer s.locks.unlock(id)

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return upstream(err)
	}

	// record first, so no surviving record can point at a deleted object;
	// the trailing blob release is best-effort cleanup
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return upstream(err)
	}

	if err := s.binder.Release(ctx, user.ImageStorageID); err != nil {
		s.logger.Warnf("release blob object %s after deleting user %s: %v", user.ImageStorageID, id, err)
	}

	return nil
}

func (s *userService) checkAvailable(ctx context.Context, nickname, email string) error {
	if _, err := s.users.GetByNickname(ctx, nickname); err == nil {
		return &repository.DuplicateError{Field: "nickname"}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return upstream(err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return &repository.DuplicateError{Field: "email"}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return upstream(err)
	}

	return nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Nickname:  user.Nickname,
		Email:     user.Email,
		ImageURL:  user.ImageURL,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
