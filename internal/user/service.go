package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrJamesThe3rd/spendy/internal/image"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=user
type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name *string, imageURL *string) error
}

type Service struct {
	repo     Repository
	uploader image.Uploader
	folder   string
}

func NewService(repo Repository, uploader image.Uploader, folder string) *Service {
	return &Service{repo: repo, uploader: uploader, folder: folder}
}

type RegisterParams struct {
	Name     string
	Email    string
	Password string
}

func (p RegisterParams) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}

	if p.Email == "" || !strings.Contains(p.Email, "@") {
		return &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}

	if len(p.Password) < 8 {
		return &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}

	return nil
}

// Register creates a user account. The email is normalized to lowercase and
// must be unique; the password is stored as a bcrypt hash.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		Name:         strings.TrimSpace(params.Name),
		Email:        strings.ToLower(strings.TrimSpace(params.Email)),
		PasswordHash: string(hash),
	}

	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// Authenticate verifies the email/password pair and returns the user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

// UpdateProfile changes the display name and profile image. A new image is
// uploaded to the hosting collaborator before any document write.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, name *string, avatar *image.File) (*User, error) {
	if name != nil && strings.TrimSpace(*name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}

	var imageURL *string

	if avatar != nil {
		url, err := s.uploader.Upload(ctx, *avatar, s.folder)
		if err != nil {
			return nil, fmt.Errorf("uploading profile image: %w", err)
		}

		imageURL = &url
	}

	if err := s.repo.UpdateProfile(ctx, id, name, imageURL); err != nil {
		return nil, err
	}

	return s.repo.GetUser(ctx, id)
}
