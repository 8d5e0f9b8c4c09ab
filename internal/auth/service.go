package auth

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCredentials is returned when account/password don't match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// dummyHash is compared against for unknown accounts so that both paths
// cost one bcrypt comparison.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3ZRiVFgtHnGLp0s7Dd7cTK."

// Service authenticates configured bouncer accounts.
type Service struct {
	passwords map[string]string
	jwtConfig *JWTConfig
}

// NewService creates a service over account name to bcrypt hash pairs.
func NewService(passwords map[string]string, jwtConfig *JWTConfig) *Service {
	copied := make(map[string]string, len(passwords))
	for name, hash := range passwords {
		copied[name] = hash
	}
	return &Service{
		passwords: copied,
		jwtConfig: jwtConfig,
	}
}

// Login validates credentials and returns a session token.
func (s *Service) Login(account, password string) (string, error) {
	account = strings.TrimSpace(account)
	hash, ok := s.passwords[account]
	if !ok {
		_ = ComparePassword(dummyHash, password)
		return "", ErrInvalidCredentials
	}
	if err := ComparePassword(hash, password); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, account)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// ValidateToken validates a session token and returns the claims. Tokens of
// accounts removed from the configuration are rejected.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := ValidateToken(s.jwtConfig, tokenString)
	if err != nil {
		return nil, err
	}
	if _, ok := s.passwords[claims.Account]; !ok {
		return nil, fmt.Errorf("%w: unknown account", ErrInvalidToken)
	}
	return claims, nil
}
