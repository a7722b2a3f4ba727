package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"quill/internal/auth"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
	"quill/internal/validation"
)

// Messages for registration and login failures.
const (
	MsgRegisterFieldsRequired = "Please provide username, email, and password"
	MsgLoginFieldsRequired    = "Please provide email and password"
	MsgInvalidCredentials     = "Invalid email or password"
	MsgInvalidRole            = "Invalid role. Must be one of: user, admin"
	MsgOwnRoleChange          = "You cannot change your own role"
)

// TokenIssuer mints a token for an identity.
type TokenIssuer interface {
	Issue(identity auth.Identity) (string, error)
}

type UserService struct {
	userRepo  repository.UserRepository
	tokens    TokenIssuer
	hashCost  int
	dummyOnce sync.Once
	dummyHash []byte
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthResult is a user together with a freshly issued token.
type AuthResult struct {
	User  *models.User
	Token string
}

func NewUserService(userRepo repository.UserRepository, tokens TokenIssuer) *UserService {
	return &UserService{
		userRepo: userRepo,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
	}
}

// HashPassword hashes password with bcrypt at cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := validation.NormalizeEmail(in.Email)

	if username == "" || email == "" || in.Password == "" {
		return nil, models.NewValidationError(MsgRegisterFieldsRequired)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError(repository.MsgUserExists)
	}

	hashed, err := HashPassword(in.Password, s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: hashed,
		Role:     models.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	observability.UsersRegistered.Inc()
	slog.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID.String()),
		slog.String("username", user.Username),
	)
	return &AuthResult{User: user, Token: token}, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = validation.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError(MsgLoginFieldsRequired)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// same bcrypt cost for unknown emails
		_ = bcrypt.CompareHashAndPassword(s.fallbackHash(), []byte(password))
		return nil, models.NewUnauthenticatedError(MsgInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			slog.WarnContext(ctx, "stored password hash unusable",
				slog.String("user_id", user.ID.String()),
				slog.String("error", err.Error()),
			)
		}
		return nil, models.NewUnauthenticatedError(MsgInvalidCredentials)
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID.String()))
	return &AuthResult{User: user, Token: token}, nil
}

func (s *UserService) fallbackHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("quill-placeholder"), s.hashCost)
	})
	return s.dummyHash
}

func (s *UserService) issue(user *models.User) (string, error) {
	token, err := s.tokens.Issue(auth.Identity{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	})
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return token, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ListUsers returns every user, newest first.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.List(ctx)
}

// SetRole changes the role of target. Administrators cannot change their own role.
func (s *UserService) SetRole(ctx context.Context, actor Actor, target uuid.UUID, role string) (*models.User, error) {
	parsed, ok := models.ParseRole(role)
	if !ok {
		return nil, models.NewValidationError(MsgInvalidRole)
	}
	if actor.ID == target.String() {
		return nil, models.NewForbiddenError(MsgOwnRoleChange)
	}

	user, err := s.userRepo.UpdateRole(ctx, target, parsed)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user role changed",
		slog.String("target_id", target.String()),
		slog.String("role", string(parsed)),
	)
	return user, nil
}
