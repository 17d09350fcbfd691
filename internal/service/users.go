package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"cudorms-backend/internal/apperr"
	"cudorms-backend/internal/auth"
	"cudorms-backend/internal/model"
	"cudorms-backend/internal/store"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type RegisterInput struct {
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Year      model.Year `json:"year"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = model.NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
}

func (in RegisterInput) Validate() error {
	const (
		usernameLen = "Username must be between 3 and 30 characters"
		emailMsg    = "Please provide a valid email"
		passwordLen = "Password must be at least 6 characters long"
		firstMsg    = "First name is required and must be less than 50 characters"
		lastMsg     = "Last name is required and must be less than 50 characters"
	)
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username,
			validation.Required.Error(usernameLen),
			validation.RuneLength(3, 30).Error(usernameLen),
			validation.Match(usernameRe).Error("Username can only contain letters, numbers, and underscores")),
		validation.Field(&in.Email, validation.Required.Error(emailMsg), is.EmailFormat.Error(emailMsg)),
		validation.Field(&in.Password, validation.Required.Error(passwordLen), validation.RuneLength(6, 0).Error(passwordLen)),
		validation.Field(&in.FirstName, validation.Required.Error(firstMsg), validation.RuneLength(1, 50).Error(firstMsg)),
		validation.Field(&in.LastName, validation.Required.Error(lastMsg), validation.RuneLength(1, 50).Error(lastMsg)),
		validation.Field(&in.Year, validation.In(model.YearValues...).Error("Invalid year selection")),
	)
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in LoginInput) Validate() error {
	const emailMsg = "Please provide a valid email"
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required.Error(emailMsg), is.EmailFormat.Error(emailMsg)),
		validation.Field(&in.Password, validation.Required.Error("Password is required")),
	)
}

// ProfileInput is a sparse profile update; nil fields are left unchanged.
type ProfileInput struct {
	FirstName *string     `json:"firstName"`
	LastName  *string     `json:"lastName"`
	Year      *model.Year `json:"year"`
	Avatar    *string     `json:"avatar"`
}

func (in *ProfileInput) normalize() {
	for _, p := range []*string{in.FirstName, in.LastName, in.Avatar} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}

func (in ProfileInput) Validate() error {
	const (
		firstMsg = "First name must be less than 50 characters"
		lastMsg  = "Last name must be less than 50 characters"
	)
	return validation.ValidateStruct(&in,
		validation.Field(&in.FirstName, validation.NilOrNotEmpty.Error(firstMsg), validation.RuneLength(1, 50).Error(firstMsg)),
		validation.Field(&in.LastName, validation.NilOrNotEmpty.Error(lastMsg), validation.RuneLength(1, 50).Error(lastMsg)),
		validation.Field(&in.Year, validation.In(model.YearValues...).Error("Invalid year selection")),
		validation.Field(&in.Avatar, validation.RuneLength(0, 512)),
	)
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (in ChangePasswordInput) Validate() error {
	const newMsg = "New password must be at least 6 characters long"
	return validation.ValidateStruct(&in,
		validation.Field(&in.CurrentPassword, validation.Required.Error("Current password is required")),
		validation.Field(&in.NewPassword, validation.Required.Error(newMsg), validation.RuneLength(6, 0).Error(newMsg)),
	)
}

// AuthResult is returned by registration and login.
type AuthResult struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    model.PublicUser `json:"user"`
}

// UserService handles accounts and sessions.
type UserService struct {
	store  store.Store
	tokens *auth.TokenManager
}

func NewUserService(s store.Store, tokens *auth.TokenManager) *UserService {
	return &UserService{store: s, tokens: tokens}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}

	existing, err := s.store.FindUserByUsernameOrEmail(ctx, in.Username, in.Email)
	switch {
	case err == nil:
		return nil, duplicateUser(existing.Email == in.Email)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	u := &model.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Year:      in.Year,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Lost a race with a concurrent registration.
			byEmail, lookupErr := s.store.FindUserByEmail(ctx, in.Email)
			return nil, duplicateUser(lookupErr == nil && byEmail != nil)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(u, "User registered successfully")
}

func duplicateUser(emailTaken bool) error {
	if emailTaken {
		return apperr.New(apperr.Duplicate, "Email already registered")
	}
	return apperr.New(apperr.Duplicate, "Username already taken")
}

func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = model.NormalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}

	u, err := s.store.FindUserByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.Unauthenticated, "Invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !u.CheckPassword(in.Password) {
		return nil, apperr.New(apperr.Unauthenticated, "Invalid credentials")
	}
	return s.issue(u, "Login successful")
}

func (s *UserService) issue(u *model.User, msg string) (*AuthResult, error) {
	token, err := s.tokens.Generate(u.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Message: msg, Token: token, User: u.Public()}, nil
}

// Authenticate resolves a bearer token to its user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.Validate(token)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return nil, apperr.New(apperr.Unauthenticated, "Token expired")
	case err != nil:
		return nil, apperr.New(apperr.Unauthenticated, "Invalid token")
	}

	u, err := s.store.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.Unauthenticated, "Invalid token")
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, u *model.User, in ProfileInput) (*model.PublicUser, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}

	updated, err := s.store.UpdateUserProfile(ctx, u.ID, store.ProfilePatch{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Year:      in.Year,
		Avatar:    in.Avatar,
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	pub := updated.Public()
	return &pub, nil
}

func (s *UserService) ChangePassword(ctx context.Context, u *model.User, in ChangePasswordInput) error {
	if err := in.Validate(); err != nil {
		return apperr.FromValidation(err)
	}
	if !u.CheckPassword(in.CurrentPassword) {
		return apperr.New(apperr.Validation, "Current password is incorrect")
	}
	if err := s.store.UpdateUserPassword(ctx, u.ID, in.NewPassword); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.NotFound, "User not found")
		}
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}
