package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo  repositories.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration // Duration for which JWT is valid
	admins    map[string]bool
	log       *zap.Logger
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithAdminEmails grants the admin role to accounts registered under these
// addresses. Matching ignores case and surrounding spaces.
func WithAdminEmails(emails ...string) AuthOption {
	return func(s *AuthService) {
		for _, email := range emails {
			if email = normalizeEmail(email); email != "" {
				s.admins[email] = true
			}
		}
	}
}

// NewAuthService creates a new AuthService. A zero tokenTTL means 24 hours.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenTTL time.Duration, log *zap.Logger, opts ...AuthOption) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	s := &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		admins:    map[string]bool{},
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with a bcrypt-hashed password and returns it with
// a fresh token.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, string, error) {
	email = normalizeEmail(email)

	existing, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return nil, "", fmt.Errorf("email '%s': %w", email, ErrEmailTaken)
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return nil, "", fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hashedPassword),
		IsAdmin:  s.admins[email],
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to register user: %w", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login authenticates a user by email and password. Unknown email and
// wrong password yield the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.log.Error("login lookup failed", zap.Error(err))
		}
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if id, _ := claims["user_id"].(string); id == "" {
		return nil, errors.New("invalid token: missing user_id")
	}
	return claims, nil
}

// GetUser returns the user behind a validated token. Accounts whose email
// is listed through WithAdminEmails are reported as admins even when they
// registered before the list named them.
func (s *AuthService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if s.admins[user.Email] {
		user.IsAdmin = true
	}
	return user, nil
}
