package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService mints token pairs after a successful login and rotates
// server-stored refresh tokens.
type TokenService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	issuer                       TokenIssuer
	refreshTokenValidityDuration time.Duration
	logger                       logging.Logger
	now                          func() time.Time
}

// NewTokenService constructs a TokenService using repositories and server config.
func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, issuer TokenIssuer, cfg *config.Config, logger logging.Logger) *TokenService {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &TokenService{
		db:                           db,
		repomanager:                  m,
		issuer:                       issuer,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		logger:                       logger.With("component", "tokens"),
		now:                          time.Now,
	}
}

// Issue mints a pair for username. The account is re-read so the access
// token carries its current role.
func (s *TokenService) Issue(ctx context.Context, username string) (*TokenPair, error) {
	account, err := s.repomanager.Accounts(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	if !account.IsActive {
		return nil, common.ErrorUnauthorized
	}
	return s.generateTokenPair(ctx, account, s.db)
}

// Refresh validates a refresh token, rotates it transactionally and returns
// a fresh TokenPair. Expired tokens yield common.ErrRefreshTokenExpired,
// unknown tokens and inactive accounts common.ErrorUnauthorized.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(s.now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// only the caller that actually removes the row may rotate it
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error deleting refresh token: %w", err)
		}

		account, err := s.repomanager.Accounts(tx).GetByID(ctx, token.AccountID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error loading account: %w", err)
		}
		if !account.IsActive {
			return common.ErrorUnauthorized
		}

		var genErr error
		pair, genErr = s.generateTokenPair(ctx, account, tx)
		return genErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "refresh token rotated", "account_id", token.AccountID)
	return pair, nil
}

// Revoke drops every refresh token of username. Unknown accounts are a no-op.
func (s *TokenService) Revoke(ctx context.Context, username string) error {
	account, err := s.repomanager.Accounts(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	if err := s.repomanager.RefreshTokens(s.db).DeleteByAccount(ctx, account.ID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

func (s *TokenService) generateTokenPair(ctx context.Context, account *models.Account, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.issuer.Issue(account.Username, account.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.repomanager.RefreshTokens(tx).Create(ctx, account.ID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
