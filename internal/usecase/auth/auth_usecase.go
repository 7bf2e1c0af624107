package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/gdugdh24/nearmatch-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const dateLayout = "2006-01-02"

type AuthUseCase struct {
	profileRepo repository.ProfileRepository
	jwtSecret   string
	tokenTTL    time.Duration
	bcryptCost  int
	now         func() time.Time
}

func NewAuthUseCase(profileRepo repository.ProfileRepository, jwtSecret string, tokenTTL time.Duration) *AuthUseCase {
	return &AuthUseCase{
		profileRepo: profileRepo,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
		bcryptCost:  bcrypt.DefaultCost,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRequest represents a sign up request
type RegisterRequest struct {
	Name        string        `json:"name" binding:"required"`
	Email       string        `json:"email" binding:"required"`
	Phone       string        `json:"phone" binding:"required"`
	Password    string        `json:"password" binding:"required"`
	Gender      domain.Gender `json:"gender" binding:"required"`
	DateOfBirth string        `json:"dateOfBirth" binding:"required"`
}

// LoginRequest represents an email/password login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Profile   *domain.Profile `json:"profile"`
}

// Register validates the request, stores a new profile and issues a token.
func (uc *AuthUseCase) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)

	dob, err := time.Parse(dateLayout, req.DateOfBirth)
	if err != nil {
		return nil, domain.ValidationError("dateOfBirth must be formatted as YYYY-MM-DD")
	}

	now := uc.now()
	for _, check := range []error{
		domain.ValidateName(req.Name),
		domain.ValidateEmail(req.Email),
		domain.ValidatePhone(req.Phone),
		domain.ValidatePassword(req.Password),
		domain.ValidateGender(req.Gender),
		domain.ValidateAdult(dob, now),
	} {
		if check != nil {
			return nil, check
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), uc.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	profile := &domain.Profile{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Gender:       req.Gender,
		DateOfBirth:  dob,
		Interests:    []string{},
		Photos:       []string{},
		IsActive:     true,
		LastActive:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.profileRepo.Create(ctx, profile); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) || errors.Is(err, domain.ErrPhoneTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	log.Printf("[Auth] registered profile %s", profile.ID)
	return uc.issue(profile)
}

// Login checks credentials and issues a fresh token.
func (uc *AuthUseCase) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	profile, err := uc.profileRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !profile.Available() {
		return nil, domain.ErrAccountDisabled
	}

	now := uc.now()
	if err := uc.profileRepo.TouchLastActive(ctx, profile.ID, now); err != nil {
		return nil, fmt.Errorf("failed to update last active: %w", err)
	}
	profile.LastActive = now

	return uc.issue(profile)
}

// VerifyToken verifies JWT token and returns the profile ID it was issued for
func (uc *AuthUseCase) VerifyToken(ctx context.Context, tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return []byte(uc.jwtSecret), nil
	}, jwt.WithTimeFunc(uc.now), jwt.WithExpirationRequired())

	if err != nil || !token.Valid {
		return uuid.Nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, domain.ErrInvalidToken
	}

	raw, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, domain.ErrInvalidToken
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken
	}

	return userID, nil
}

func (uc *AuthUseCase) issue(profile *domain.Profile) (*AuthResponse, error) {
	now := uc.now()
	expiresAt := now.Add(uc.tokenTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": profile.ID.String(),
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString([]byte(uc.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		Token:     tokenString,
		ExpiresAt: expiresAt,
		Profile:   profile,
	}, nil
}
