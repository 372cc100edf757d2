package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quizmind/apiserver/internal/store"
	"github.com/quizmind/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdatePasswordHash(ctx context.Context, id int, passwordHash string) error
}

// TokenIssuer signs access tokens for a subject.
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, error)
}

// SignupInput carries the fields accepted at registration.
type SignupInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Address     string
	PhoneNumber string
	Education   string
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo     UserRepository
	tokens   TokenIssuer
	tokenTTL time.Duration
	hashCost int
}

func NewUserService(repo UserRepository, tokens TokenIssuer, tokenTTL time.Duration) *UserService {
	return &UserService{
		repo:     repo,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		hashCost: bcrypt.DefaultCost,
	}
}

// GetByEmail returns ErrUserNotFound when no user has the email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// Signup hashes the password and stores a new user. The email must not be
// registered yet.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (types.User, error) {
	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return types.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Email:        in.Email,
		PasswordHash: string(hashed),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Address:      in.Address,
		PhoneNumber:  in.PhoneNumber,
		Education:    in.Education,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login checks the password and returns a signed access token whose subject
// is the user's email. Unknown email and wrong password are reported the
// same way.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Email, s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// ForgotPassword replaces the password of the user with the given email.
// The user is looked up before the two passwords are compared.
func (s *UserService) ForgotPassword(ctx context.Context, email, newPassword, confirmPassword string) error {
	user, err := s.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, user.ID, string(hashed)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
