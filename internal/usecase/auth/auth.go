package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/internal/repo"
	"github.com/okushnikov/structured-query/pkg/logger"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

type AuthUseCase struct {
	userRepo repo.UserRepo

	secret   []byte
	tokenTTL time.Duration

	logger logger.Interface
}

func New(userRepo repo.UserRepo, secret string, tokenTTL time.Duration, l logger.Interface) *AuthUseCase {
	return &AuthUseCase{
		userRepo: userRepo,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		logger:   l,
	}
}

func (uc *AuthUseCase) Register(ctx context.Context, username, password string) (*entity.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("AuthUseCase - Register - bcrypt.GenerateFromPassword: %w", err)
	}

	user := &entity.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("AuthUseCase - Register - uc.userRepo.Create: %w", err)
	}

	return user, nil
}

// Login checks credentials and issues a signed bearer token. Wrong
// username and wrong password are indistinguishable to the caller.
func (uc *AuthUseCase) Login(ctx context.Context, username, password string) (string, error) {
	user, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("AuthUseCase - Login: %w", errs.ErrForbidden)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("AuthUseCase - Login: %w", errs.ErrForbidden)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(uc.tokenTTL)),
	})

	signed, err := token.SignedString(uc.secret)
	if err != nil {
		return "", fmt.Errorf("AuthUseCase - Login - token.SignedString: %w", err)
	}

	return signed, nil
}

// ParseToken validates the signature and expiry and returns the user id.
func (uc *AuthUseCase) ParseToken(token string) (uuid.UUID, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return uc.secret, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, fmt.Errorf("AuthUseCase - ParseToken: %w", errs.ErrForbidden)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("AuthUseCase - ParseToken: %w", errs.ErrForbidden)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("AuthUseCase - ParseToken - uuid.Parse: %w", errs.ErrForbidden)
	}

	return id, nil
}
