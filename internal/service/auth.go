package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"ticketing-payments/config"
	"ticketing-payments/internal/core/ports"
	"ticketing-payments/pkg/apperror"

	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService. There is a single operator
// account, held in configuration as an Argon2id hash; no account store.
type AuthServiceImpl struct {
	cfg      config.AuthConfig
	hashSvc  ports.HashService
	tokenSvc ports.TokenService
	log      zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(cfg config.AuthConfig, hashSvc ports.HashService, tokenSvc ports.TokenService, log zerolog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		cfg:      cfg,
		hashSvc:  hashSvc,
		tokenSvc: tokenSvc,
		log:      log,
	}
}

// Login checks the operator credentials and issues a JWT. Username and
// password failures are indistinguishable to the caller.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	if username == "" || password == "" {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.AdminUsername)) == 1

	passwordOK, err := s.hashSvc.Verify(password, s.cfg.AdminPasswordHash)
	if err != nil {
		// A malformed stored hash is a deployment problem, not a caller one,
		// but it still must not leak which half of the check failed.
		s.log.Error().Err(err).Msg("operator password hash could not be verified")
		passwordOK = false
	}

	if !usernameOK || !passwordOK {
		s.log.Warn().Str("username", username).Msg("operator login rejected")
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiresAt, err := s.tokenSvc.Generate(username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.log.Info().Str("username", username).Msg("operator logged in")
	return token, expiresAt, nil
}
