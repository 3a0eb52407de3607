// Package repository defines the persistence interfaces for the user store.
package repository

import (
	"context"

	"github.com/shopcore/backend/internal/domain"
	"github.com/shopcore/backend/pkg/pagination"
)

// ListFilter narrows a user listing. Zero values mean no filtering.
type ListFilter struct {
	Role   domain.Role
	Status string
	Search string
}

// UserRepository is the persistence boundary for user accounts.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByResetTokenHash resolves an outstanding password reset token by
	// its stored hash. Expiry is the caller's concern via token.Matches,
	// which keeps an expired token indistinguishable from an unknown one.
	GetByResetTokenHash(ctx context.Context, hash string) (*domain.User, error)

	// GetByVerificationTokenHash resolves an outstanding email verification
	// token by its stored hash.
	GetByVerificationTokenHash(ctx context.Context, hash string) (*domain.User, error)

	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id string) error

	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]domain.User, int, error)
}
