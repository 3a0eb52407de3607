package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopcore/backend/internal/domain"
	"github.com/shopcore/backend/internal/mailer"
	"github.com/shopcore/backend/internal/session"
	"github.com/shopcore/backend/internal/token"
	apperrors "github.com/shopcore/backend/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// SessionStore is the session persistence boundary used by the auth service.
type SessionStore interface {
	Create(ctx context.Context, principal domain.Principal) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	Destroy(ctx context.Context, id string) error
	Regenerate(ctx context.Context, oldID string, principal domain.Principal) (*session.Session, error)
}

// EventPublisher publishes account domain events.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserUpdated(ctx context.Context, user *domain.User) error
	PublishUserDeleted(ctx context.Context, userID, email string) error
	PublishPasswordChanged(ctx context.Context, userID, email string) error
	PublishPasswordReset(ctx context.Context, userID, email string) error
	PublishEmailVerified(ctx context.Context, userID, email string) error
}

// UserReader is the subset of the user repository the auth service needs.
// The auth service never lists or deletes accounts.
type UserReader interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByResetTokenHash(ctx context.Context, hash string) (*domain.User, error)
	GetByVerificationTokenHash(ctx context.Context, hash string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
}

// AuthService implements registration, login and the credential flows.
type AuthService struct {
	userRepo    UserReader
	sessions    SessionStore
	mail        mailer.Mailer
	producer    EventPublisher
	logger      *slog.Logger
	frontendURL string
}

// NewAuthService creates a new auth service. frontendURL is the base for
// reset and verification links embedded in email.
func NewAuthService(
	userRepo UserReader,
	sessions SessionStore,
	mail mailer.Mailer,
	producer EventPublisher,
	logger *slog.Logger,
	frontendURL string,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessions:    sessions,
		mail:        mail,
		producer:    producer,
		logger:      logger,
		frontendURL: frontendURL,
	}
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new user. Role is
// optional and defaults to customer.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// --- Operations ---

// Register creates a new account, starts a session for it, and
// sends the email verification link. A failed verification email does not
// fail registration; the link can be re-sent later.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, *session.Session, error) {
	if input.Name == "" {
		return nil, nil, apperrors.InvalidInput("name is required")
	}
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	role := input.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	if !domain.IsValidRole(role) {
		return nil, nil, apperrors.InvalidInput(fmt.Sprintf("invalid role %q", role))
	}

	email := domain.NormalizeEmail(input.Email)
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, nil, apperrors.AlreadyExists("user", "email", email)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, fmt.Errorf("check existing email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	verification, err := token.Issue(token.VerificationTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("issue verification token: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:                         uuid.New().String(),
		Name:                       input.Name,
		Email:                      email,
		PasswordHash:               string(hashedPassword),
		Role:                       role,
		Status:                     domain.StatusActive,
		EmailVerificationTokenHash: verification.Hash,
		EmailVerificationExpiresAt: &verification.ExpiresAt,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	sess, err := s.sessions.Create(ctx, domain.PrincipalFromUser(user))
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	verifyURL := s.frontendURL + "/verify-email?token=" + verification.Raw
	if _, err := s.mail.Send(ctx, mailer.EmailVerificationMessage(user.Email, user.Name, verifyURL)); err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification email",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, sess, nil
}

// Login authenticates a user and starts a session. Unknown emails and wrong
// passwords produce the same error so accounts cannot be enumerated.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, *session.Session, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, domain.NormalizeEmail(input.Email))
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	if !user.IsActive() {
		return nil, nil, apperrors.Forbidden("account is deactivated")
	}

	loginAt := time.Now().UTC()
	user.LastLoginAt = &loginAt
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to record last login",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	sess, err := s.sessions.Create(ctx, domain.PrincipalFromUser(user))
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, sess, nil
}

// Logout destroys a session. Logging out an already-dead session succeeds.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// CurrentUser loads the live user record behind a principal.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return user, nil
}

// RefreshSession re-reads the user record and rotates the session id,
// giving the caller a session whose principal snapshot is current. Sessions
// of deleted or deactivated accounts are destroyed instead.
func (s *AuthService) RefreshSession(ctx context.Context, sessionID string) (*domain.User, *session.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("session expired")
	}

	user, err := s.userRepo.GetByID(ctx, sess.Principal.ID)
	if err != nil || !user.IsActive() {
		if derr := s.sessions.Destroy(ctx, sessionID); derr != nil {
			s.logger.ErrorContext(ctx, "failed to destroy stale session",
				slog.String("error", derr.Error()),
			)
		}
		return nil, nil, apperrors.Unauthorized("session expired")
	}

	fresh, err := s.sessions.Regenerate(ctx, sessionID, domain.PrincipalFromUser(user))
	if err != nil {
		return nil, nil, fmt.Errorf("regenerate session: %w", err)
	}

	s.logger.InfoContext(ctx, "session refreshed",
		slog.String("user_id", user.ID),
	)

	return user, fresh, nil
}

// ChangePassword lets an authenticated user change their password. Existing
// sessions stay valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return apperrors.InvalidInput("current password is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return apperrors.InvalidInput("new password must be different from current password")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for password change: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.InvalidInput("current password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	if _, err := s.mail.Send(ctx, mailer.PasswordChangedMessage(user.Email, user.Name)); err != nil {
		s.logger.ErrorContext(ctx, "failed to send password changed email",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishPasswordChanged(ctx, user.ID, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_changed event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// ForgotPassword starts the password reset flow. The response never reveals
// whether the email exists or whether the account is active; deactivated
// accounts get no token and no email. The token hash is persisted before the email
// goes out; if the send fails the token is cleared again and the failure is
// surfaced, so no unreachable token is left outstanding.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email",
				slog.String("email", domain.NormalizeEmail(email)),
			)
			return nil
		}
		return fmt.Errorf("get user for password reset: %w", err)
	}

	if !user.IsActive() {
		s.logger.InfoContext(ctx, "password reset requested for inactive account",
			slog.String("user_id", user.ID),
		)
		return nil
	}

	reset, err := token.Issue(token.ResetTTL)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	user.PasswordResetTokenHash = reset.Hash
	user.PasswordResetExpiresAt = &reset.ExpiresAt
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	resetURL := s.frontendURL + "/reset-password?token=" + reset.Raw
	if _, err := s.mail.Send(ctx, mailer.PasswordResetMessage(user.Email, user.Name, resetURL)); err != nil {
		s.logger.ErrorContext(ctx, "failed to send password reset email",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)

		user.ClearPasswordResetToken()
		if uerr := s.userRepo.Update(ctx, user); uerr != nil {
			s.logger.ErrorContext(ctx, "failed to clear reset token after send failure",
				slog.String("user_id", user.ID),
				slog.String("error", uerr.Error()),
			)
		}
		return apperrors.Internal(err)
	}

	s.logger.InfoContext(ctx, "password reset requested",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// ResetPassword completes the reset flow. Expired and unknown tokens are
// rejected identically.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if rawToken == "" {
		return apperrors.InvalidInput("reset token is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.userRepo.GetByResetTokenHash(ctx, token.Hash(rawToken))
	if err != nil {
		return apperrors.InvalidInput("invalid or expired reset token")
	}
	if !token.Matches(rawToken, user.PasswordResetTokenHash, user.PasswordResetExpiresAt, time.Now().UTC()) {
		return apperrors.InvalidInput("invalid or expired reset token")
	}

	if !user.IsActive() {
		return apperrors.Forbidden("account is deactivated")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	user.ClearPasswordResetToken()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	if _, err := s.mail.Send(ctx, mailer.PasswordResetConfirmationMessage(user.Email, user.Name)); err != nil {
		s.logger.ErrorContext(ctx, "failed to send reset confirmation email",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishPasswordReset(ctx, user.ID, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_reset event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// VerifyEmail marks an account verified using the emailed token and
// reactivates the account if it had been deactivated.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return apperrors.InvalidInput("verification token is required")
	}

	user, err := s.userRepo.GetByVerificationTokenHash(ctx, token.Hash(rawToken))
	if err != nil {
		return apperrors.InvalidInput("invalid or expired verification token")
	}
	if !token.Matches(rawToken, user.EmailVerificationTokenHash, user.EmailVerificationExpiresAt, time.Now().UTC()) {
		return apperrors.InvalidInput("invalid or expired verification token")
	}

	user.EmailVerified = true
	user.Status = domain.StatusActive
	user.ClearEmailVerificationToken()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}

	if _, err := s.mail.Send(ctx, mailer.EmailVerifiedMessage(user.Email, user.Name)); err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification success email",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishEmailVerified(ctx, user.ID, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.email_verified event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "email verified",
		slog.String("user_id", user.ID),
	)

	return nil
}

// ResendVerification issues a fresh verification token for an unverified
// account and emails the new link.
func (s *AuthService) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for verification resend: %w", err)
	}

	if user.EmailVerified {
		return apperrors.InvalidInput("email is already verified")
	}

	verification, err := token.Issue(token.VerificationTTL)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}

	user.EmailVerificationTokenHash = verification.Hash
	user.EmailVerificationExpiresAt = &verification.ExpiresAt
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	verifyURL := s.frontendURL + "/verify-email?token=" + verification.Raw
	if _, err := s.mail.Send(ctx, mailer.EmailVerificationMessage(user.Email, user.Name, verifyURL)); err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification email",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return apperrors.Internal(err)
	}

	s.logger.InfoContext(ctx, "verification email re-sent",
		slog.String("user_id", user.ID),
	)

	return nil
}

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
