package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopcore/backend/internal/domain"
	"github.com/shopcore/backend/internal/repository"
	apperrors "github.com/shopcore/backend/pkg/errors"
	"github.com/shopcore/backend/pkg/pagination"
)

// UserService implements administrative account management.
type UserService struct {
	userRepo repository.UserRepository
	producer EventPublisher
	logger   *slog.Logger
}

// NewUserService creates a new user management service.
func NewUserService(userRepo repository.UserRepository, producer EventPublisher, logger *slog.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		producer: producer,
		logger:   logger,
	}
}

// UpdateUserInput holds the fields an administrator may change. Nil fields
// are left untouched.
type UpdateUserInput struct {
	Name   *string
	Email  *string
	Role   *domain.Role
	Status *string
}

// List returns a page of users matching the filter.
func (s *UserService) List(ctx context.Context, filter repository.ListFilter, params pagination.Params) ([]domain.User, int, error) {
	if filter.Role != "" && !domain.IsValidRole(filter.Role) {
		return nil, 0, apperrors.InvalidInput("invalid role filter")
	}
	if filter.Status != "" && !domain.IsValidStatus(filter.Status) {
		return nil, 0, apperrors.InvalidInput("invalid status filter")
	}

	users, total, err := s.userRepo.List(ctx, filter, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// Get retrieves a single user by id.
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Update applies administrative changes to a user. An administrator cannot
// change their own role, so the system cannot lose its last admin by
// accident.
func (s *UserService) Update(ctx context.Context, actorID, userID string, input UpdateUserInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("name must not be empty")
		}
		user.Name = *input.Name
	}

	if input.Email != nil {
		email := domain.NormalizeEmail(*input.Email)
		if email == "" {
			return nil, apperrors.InvalidInput("email must not be empty")
		}
		if email != user.Email {
			user.Email = email
			user.EmailVerified = false
		}
	}

	if input.Role != nil {
		if !domain.IsValidRole(*input.Role) {
			return nil, apperrors.InvalidInput("invalid role")
		}
		if userID == actorID && *input.Role != user.Role {
			return nil, apperrors.InvalidInput("cannot change your own role")
		}
		user.Role = *input.Role
	}

	if input.Status != nil {
		if !domain.IsValidStatus(*input.Status) {
			return nil, apperrors.InvalidInput("invalid status")
		}
		if userID == actorID && *input.Status == domain.StatusInactive {
			return nil, apperrors.InvalidInput("cannot deactivate your own account")
		}
		user.Status = *input.Status
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	// Publish user updated event (non-blocking on failure).
	if err := s.producer.PublishUserUpdated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.updated event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user updated",
		slog.String("user_id", user.ID),
		slog.String("actor_id", actorID),
	)

	return user, nil
}

// Delete removes a user account. Administrators cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actorID, userID string) error {
	if userID == actorID {
		return apperrors.InvalidInput("cannot delete your own account")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for delete: %w", err)
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if err := s.producer.PublishUserDeleted(ctx, user.ID, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.deleted event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user deleted",
		slog.String("user_id", user.ID),
		slog.String("actor_id", actorID),
	)

	return nil
}
