package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shopcore/backend/internal/domain"
	"github.com/shopcore/backend/internal/repository"
	"github.com/shopcore/backend/pkg/database"
	apperrors "github.com/shopcore/backend/pkg/errors"
	"github.com/shopcore/backend/pkg/pagination"
)

const userColumns = `id, name, email, password_hash, role, status, email_verified,
	password_reset_token_hash, password_reset_expires_at,
	email_verification_token_hash, email_verification_expires_at,
	last_login_at, created_at, updated_at`

// Pool is the subset of pgxpool.Pool the repository needs. Satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	pool Pool
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, status, email_verified,
			password_reset_token_hash, password_reset_expires_at,
			email_verification_token_hash, email_verification_expires_at,
			last_login_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	ctx, end := database.TraceQuery(ctx, "CreateUser", query)
	_, err := r.pool.Exec(ctx, query,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.Role,
		u.Status,
		u.EmailVerified,
		nullString(u.PasswordResetTokenHash),
		u.PasswordResetExpiresAt,
		nullString(u.EmailVerificationTokenHash),
		u.EmailVerificationExpiresAt,
		u.LastLoginAt,
		u.CreatedAt,
		u.UpdatedAt,
	)
	end(err)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, "GetUserByID", query, id)
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(ctx, "GetUserByEmail", query, email)
}

// GetByResetTokenHash retrieves the user holding a password reset token with
// the given hash. Expiry is checked by the caller via token.Matches.
func (r *UserRepository) GetByResetTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE password_reset_token_hash = $1`
	return r.scanUser(ctx, "GetUserByResetToken", query, hash)
}

// GetByVerificationTokenHash retrieves the user holding an email verification
// token with the given hash. Expiry is checked by the caller via token.Matches.
func (r *UserRepository) GetByVerificationTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email_verification_token_hash = $1`
	return r.scanUser(ctx, "GetUserByVerificationToken", query, hash)
}

// Update modifies an existing user in the database.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET name = $1, email = $2, password_hash = $3, role = $4, status = $5, email_verified = $6,
		    password_reset_token_hash = $7, password_reset_expires_at = $8,
		    email_verification_token_hash = $9, email_verification_expires_at = $10,
		    last_login_at = $11, updated_at = $12
		WHERE id = $13`

	ctx, end := database.TraceQuery(ctx, "UpdateUser", query)
	ct, err := r.pool.Exec(ctx, query,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.Role,
		u.Status,
		u.EmailVerified,
		nullString(u.PasswordResetTokenHash),
		u.PasswordResetExpiresAt,
		nullString(u.EmailVerificationTokenHash),
		u.EmailVerificationExpiresAt,
		u.LastLoginAt,
		u.UpdatedAt,
		u.ID,
	)
	end(err)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", u.ID)
	}

	return nil
}

// Delete removes a user from the database by their ID.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteUser", query)
	ct, err := r.pool.Exec(ctx, query, id)
	end(err)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

// List returns a page of users matching the filter plus the total match count.
func (r *UserRepository) List(ctx context.Context, filter repository.ListFilter, params pagination.Params) ([]domain.User, int, error) {
	where, args := buildListWhere(filter)

	countQuery := `SELECT COUNT(*) FROM users` + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`SELECT `+userColumns+` FROM users%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, params.PerPage, params.Offset)

	ctx, end := database.TraceQuery(ctx, "ListUsers", query)
	rows, err := r.pool.Query(ctx, query, args...)
	end(err)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate user rows: %w", err)
	}

	return users, total, nil
}

func buildListWhere(filter repository.ListFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.Role != "" {
		args = append(args, filter.Role)
		clauses = append(clauses, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserRow(row rowScanner) (*domain.User, error) {
	var u domain.User
	var resetHash, verifyHash *string

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Status,
		&u.EmailVerified,
		&resetHash,
		&u.PasswordResetExpiresAt,
		&verifyHash,
		&u.EmailVerificationExpiresAt,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if resetHash != nil {
		u.PasswordResetTokenHash = *resetHash
	}
	if verifyHash != nil {
		u.EmailVerificationTokenHash = *verifyHash
	}
	return &u, nil
}

// scanUser executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, operation, query string, args ...any) (*domain.User, error) {
	ctx, end := database.TraceQuery(ctx, operation, query)
	u, err := scanUserRow(r.pool.QueryRow(ctx, query, args...))
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// nullString stores empty strings as NULL so the partial unique indexes on
// token hashes never collide on "".
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
