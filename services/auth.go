package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"blogapi/auth"
	"blogapi/database"
	"blogapi/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	verificationTTL = 24 * time.Hour
	resetTTL        = time.Hour
	minPasswordLen  = 6
	maxPasswordLen  = 72 // bcrypt input limit, in bytes
	errInvalidCreds = "invalid credentials"
	errVerifyEmail  = "verify email"
)

type UserStore interface {
	Insert(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	SetVerificationFailed(ctx context.Context, id primitive.ObjectID) error
	VerifyByToken(ctx context.Context, token string, now time.Time) error
	SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error
	ClearResetToken(ctx context.Context, id primitive.ObjectID) error
	ResetPasswordByToken(ctx context.Context, token, passwordHash string, now time.Time) error
	List(ctx context.Context) ([]models.UserSummary, error)
	Stats(ctx context.Context) (models.UserStats, error)
}

type Mailer interface {
	SendVerification(ctx context.Context, to, name, token string) error
	SendPasswordReset(ctx context.Context, to, name, token string) error
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
}

type SignupResult struct {
	User      *models.User
	EmailSent bool
}

type LoginResult struct {
	Token string             `json:"token"`
	User  models.UserSummary `json:"user"`
}

type AuthService struct {
	users  UserStore
	mailer Mailer
	tokens TokenIssuer
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewAuthService(users UserStore, mailer Mailer, tokens TokenIssuer, logger *zap.SugaredLogger) *AuthService {
	return &AuthService{
		users:  users,
		mailer: mailer,
		tokens: tokens,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Signup creates an unverified account and mails a verification link. When
// the mail cannot be sent the account is kept and flagged.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" {
		return nil, InvalidInput("name is required")
	}
	if !validEmail(email) {
		return nil, InvalidInput("a valid email is required")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, Conflict("user already exists")
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, StoreFailure("failed to create user", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, StoreFailure("failed to create user", err)
	}
	token, err := auth.RandomToken()
	if err != nil {
		return nil, StoreFailure("failed to create user", err)
	}

	now := s.now()
	expires := now.Add(verificationTTL)
	user := &models.User{
		ID:                       primitive.NewObjectID(),
		Name:                     name,
		Email:                    email,
		Password:                 hash,
		VerificationToken:        token,
		VerificationTokenExpires: &expires,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, Conflict("user already exists")
		}
		s.logger.Errorw("Insert user failed", "error", err)
		return nil, StoreFailure("failed to create user", err)
	}

	if err := s.mailer.SendVerification(ctx, email, name, token); err != nil {
		s.logger.Errorw("Failed to send verification email", "userId", user.ID.Hex(), "error", err)
		if err := s.users.SetVerificationFailed(ctx, user.ID); err != nil {
			s.logger.Errorw("Failed to flag verification failure", "userId", user.ID.Hex(), "error", err)
		}
		user.EmailVerificationFailed = true
		return &SignupResult{User: user, EmailSent: false}, nil
	}

	return &SignupResult{User: user, EmailSent: true}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, database.ErrNotFound) {
		return nil, Unauthorized(errInvalidCreds)
	}
	if err != nil {
		return nil, StoreFailure("failed to log in", err)
	}

	if !user.IsVerified {
		return nil, Unauthorized(errVerifyEmail)
	}
	if !auth.CheckPassword(user.Password, password) {
		return nil, Unauthorized(errInvalidCreds)
	}

	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, StoreFailure("failed to generate token", err)
	}

	return &LoginResult{
		Token: token,
		User: models.UserSummary{
			ID:         user.ID,
			Name:       user.Name,
			Email:      user.Email,
			IsVerified: user.IsVerified,
			CreatedAt:  user.CreatedAt,
		},
	}, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return InvalidInput("invalid or expired verification token")
	}
	err := s.users.VerifyByToken(ctx, token, s.now())
	if errors.Is(err, database.ErrNotFound) {
		return InvalidInput("invalid or expired verification token")
	}
	if err != nil {
		return StoreFailure("failed to verify email", err)
	}
	return nil
}

// ForgotPassword stores a one hour reset token and mails it. If the mail
// fails the token is withdrawn.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, database.ErrNotFound) {
		return NotFound("no account found with that email")
	}
	if err != nil {
		return StoreFailure("failed to start password reset", err)
	}

	token, err := auth.RandomToken()
	if err != nil {
		return StoreFailure("failed to start password reset", err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, token, s.now().Add(resetTTL)); err != nil {
		return StoreFailure("failed to start password reset", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, token); err != nil {
		s.logger.Errorw("Failed to send password reset email", "userId", user.ID.Hex(), "error", err)
		if err := s.users.ClearResetToken(ctx, user.ID); err != nil {
			s.logger.Errorw("Failed to clear reset token", "userId", user.ID.Hex(), "error", err)
		}
		return StoreFailure("failed to send password reset email, please try again later", err)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if err := checkPassword(password); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return StoreFailure("failed to reset password", err)
	}

	err = s.users.ResetPasswordByToken(ctx, token, hash, s.now())
	if errors.Is(err, database.ErrNotFound) {
		return InvalidInput("invalid or expired reset token")
	}
	if err != nil {
		return StoreFailure("failed to reset password", err)
	}
	return nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, StoreFailure("failed to retrieve users", err)
	}
	return users, nil
}

func (s *AuthService) Stats(ctx context.Context) (models.UserStats, error) {
	stats, err := s.users.Stats(ctx)
	if err != nil {
		return stats, StoreFailure("failed to retrieve user statistics", err)
	}
	return stats, nil
}

func checkPassword(password string) error {
	if len(password) < minPasswordLen {
		return InvalidInput("password must be at least 6 characters")
	}
	if len(password) > maxPasswordLen {
		return InvalidInput("password must be at most 72 bytes")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
