package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/order-api/internal/domain"
)

const (
	// DefaultTokenTTL — время жизни выданного токена.
	DefaultTokenTTL = 15 * time.Minute

	issuer = "order-api"
)

// ErrSecretRequired — пустой ключ подписи недопустим.
var ErrSecretRequired = errors.New("jwt secret is required")

// Config задаёт параметры выдачи и проверки токенов.
type Config struct {
	Secret       []byte
	TTL          time.Duration
	Username     string
	PasswordHash []byte
}

// Token — ответ на успешный логин.
type Token struct {
	User  string `json:"user"`
	Token string `json:"token"`
}

// Service выдаёт и проверяет HS256-токены для единственной учётной записи из конфигурации.
type Service struct {
	secret       []byte
	ttl          time.Duration
	username     string
	passwordHash []byte
	now          func() time.Time
}

// NewService проверяет конфигурацию и создаёт сервис.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrSecretRequired
	}
	if cfg.Username == "" || len(cfg.PasswordHash) == 0 {
		return nil, fmt.Errorf("auth credentials are not configured")
	}
	if _, err := bcrypt.Cost(cfg.PasswordHash); err != nil {
		return nil, fmt.Errorf("invalid password hash: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &Service{
		secret:       cfg.Secret,
		ttl:          ttl,
		username:     cfg.Username,
		passwordHash: cfg.PasswordHash,
		now:          time.Now,
	}, nil
}

// HashPassword возвращает bcrypt-хэш пароля для конфигурации.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// Login проверяет учётные данные и выдаёт токен с sub = username.
func (s *Service) Login(_ context.Context, username, password string) (Token, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return Token{}, domain.ErrInvalidCredentials
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	return Token{User: username, Token: signed}, nil
}

// Validate разбирает токен и возвращает идентичность вызывающего.
// Любая ошибка подписи, алгоритма или срока действия даёт ErrUnauthorized.
func (s *Service) Validate(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", domain.ErrUnauthorized)
	}
	return claims.Subject, nil
}

type identityKey struct{}

// WithIdentity кладёт идентичность вызывающего в контекст.
func WithIdentity(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, identityKey{}, subject)
}

// IdentityFrom достаёт идентичность, положенную middleware.
func IdentityFrom(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(identityKey{}).(string)
	return subject, ok && subject != ""
}
