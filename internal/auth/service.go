package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrNoSecret     = errors.New("token secret is not configured")
)

// Service issues and verifies caller tokens. A token binds requests to the
// account that signs them, the way a transaction signer does on chain.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Token is an issued caller token.
type Token struct {
	AccountID   string `json:"account_id"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Issue signs a token for account.
func (s *Service) Issue(account string) (Token, error) {
	if len(s.secret) == 0 {
		return Token{}, ErrNoSecret
	}
	if account == "" {
		return Token{}, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	now := s.now()
	claims := map[string]any{
		"sub": account,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	signed, err := SignHS256(claims, s.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{AccountID: account, AccessToken: signed, ExpiresIn: int64(s.ttl.Seconds())}, nil
}

// Verify checks the signature and expiry and returns the caller account.
func (s *Service) Verify(token string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	claims, err := ParseAndVerifyHS256(token, s.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return "", fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}
	if s.now().Unix() >= int64(exp) {
		return "", ErrTokenExpired
	}
	return sub, nil
}
