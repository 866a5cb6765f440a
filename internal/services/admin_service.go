package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ResetStore is the one store capability the admin service needs.
type ResetStore interface {
	DeleteAllResponses(ctx context.Context) (int, error)
}

// TokenSigner issues a dashboard token for subject, valid for ttl.
type TokenSigner func(subject string, ttl time.Duration) (string, error)

// AdminService guards the operator actions behind the shared admin code.
type AdminService struct {
	store     ResetStore
	codeHash  []byte
	signToken TokenSigner
	tokenTTL  time.Duration
	now       func() time.Time
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewAdminService hashes code once at startup. An empty code disables login
// and reset entirely.
func NewAdminService(store ResetStore, code string, signer TokenSigner, ttl time.Duration) (*AdminService, error) {
	s := &AdminService{
		store:     store,
		signToken: signer,
		tokenTTL:  ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if ttl <= 0 {
		s.tokenTTL = 12 * time.Hour
	}
	if code = strings.TrimSpace(code); code != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin code: %w", err)
		}
		s.codeHash = hash
	}
	return s, nil
}

func (s *AdminService) Enabled() bool { return len(s.codeHash) > 0 }

func (s *AdminService) VerifyCode(code string) error {
	if !s.Enabled() {
		return NewUnauthorizedError("error.unauthorized")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return NewUnauthorizedError("error.invalid_code")
	}
	if err := bcrypt.CompareHashAndPassword(s.codeHash, []byte(code)); err != nil {
		return NewUnauthorizedError("error.invalid_code")
	}
	return nil
}

func (s *AdminService) Login(code string) (*LoginResult, error) {
	if err := s.VerifyCode(code); err != nil {
		return nil, err
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken("admin", s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign admin token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: s.now().Add(s.tokenTTL)}, nil
}

// Reset deletes every survey row when code matches; nothing is touched otherwise.
func (s *AdminService) Reset(ctx context.Context, code string) (int, error) {
	if err := s.VerifyCode(code); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteAllResponses(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete responses: %w", err)
	}
	return n, nil
}

func (s *AdminService) TokenTTL() time.Duration {
	return s.tokenTTL
}
