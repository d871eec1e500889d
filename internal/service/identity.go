package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
)

var ErrInvalidIdentity = errors.New("identity: токен невалиден")

// Identity содержит данные пользователя из access токена провайдера идентичности.
type Identity struct {
	UserID        uuid.UUID
	EmailVerified bool
	FullName      string
	City          string
	Country       string
}

// Profile переводит клеймы в профиль для рейтинга.
func (i Identity) Profile(now time.Time) *entity.UserProfile {
	return &entity.UserProfile{
		ID:        i.UserID,
		FullName:  i.FullName,
		City:      i.City,
		Country:   i.Country,
		CreatedAt: now,
	}
}

type identityClaims struct {
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	City          string `json:"city"`
	Country       string `json:"country"`
	jwt.RegisteredClaims
}

// IdentityVerifier проверяет HS256 токены, выпущенные провайдером идентичности.
// Собственных токенов сервис не выпускает.
type IdentityVerifier struct {
	secret []byte
	issuer string
}

func NewIdentityVerifier(secret, issuer string) *IdentityVerifier {
	return &IdentityVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify проверяет подпись, срок действия и (если задан) издателя.
func (v *IdentityVerifier) Verify(raw string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &identityClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidIdentity
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return nil, ErrInvalidIdentity
	}

	return &Identity{
		UserID:        userID,
		EmailVerified: claims.EmailVerified,
		FullName:      strings.TrimSpace(claims.Name),
		City:          strings.TrimSpace(claims.City),
		Country:       strings.TrimSpace(claims.Country),
	}, nil
}
