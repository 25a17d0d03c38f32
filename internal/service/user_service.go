package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"userinfo-api/internal/domain"
	"userinfo-api/internal/repository"
)

// PasswordCost is the bcrypt cost used for new password hashes.
const PasswordCost = 10

var (
	// ErrEmailTaken is returned when signing up with a registered email.
	ErrEmailTaken = errors.New("email already exists")
	// ErrUnknownEmail is returned when signing in with an unregistered email.
	ErrUnknownEmail = errors.New("email does not exist")
	// ErrPasswordMismatch is returned when the password does not match the stored hash.
	ErrPasswordMismatch = errors.New("password does not match")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
)

// SignUpInput is the registration payload.
type SignUpInput struct {
	Email        string
	Password     string
	Name         string
	Age          int
	Gender       string
	ProfileImage string
}

// UserService describes account lifecycle operations.
type UserService interface {
	SignUp(ctx context.Context, in SignUpInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
}

type userService struct {
	store  repository.Store
	cost   int
	logger logrus.FieldLogger
}

func NewUserService(store repository.Store, logger logrus.FieldLogger) UserService {
	return &userService{
		store:  store,
		cost:   PasswordCost,
		logger: logger,
	}
}

func (s *userService) SignUp(ctx context.Context, in SignUpInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if in.Password == "" {
		return nil, ErrPasswordRequired
	}
	if !domain.ValidAge(in.Age) {
		return nil, domain.ErrInvalidAge
	}
	gender, err := domain.ParseGender(in.Gender)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Users(s.store.DB()).GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{Email: email, PasswordHash: string(hash)}
	err = repository.InTx(ctx, s.store, func(ctx context.Context, tx repository.DBTX) error {
		id, err := s.store.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		return s.store.Profiles(tx).Create(ctx, &domain.Profile{
			UserID:       id,
			Name:         in.Name,
			Age:          in.Age,
			Gender:       gender,
			ProfileImage: in.ProfileImage,
		})
	})
	if err != nil {
		// a concurrent sign-up won the race between the lookup and the insert
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("sign up: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("user signed up")
	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	user, err := s.store.Users(s.store.DB()).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownEmail
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrPasswordMismatch
	}

	return sanitizeUser(user), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
