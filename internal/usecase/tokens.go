package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"

	"integrity-responder/internal/domain"
)

const accessTokenCacheKey = "guesty_access_token"

type TokenStore interface {
	LatestToken(ctx context.Context) (domain.AuthToken, error)
	ReplaceToken(ctx context.Context, tok domain.AuthToken) error
}

type TokenExchanger interface {
	ExchangeToken(ctx context.Context) (domain.TokenGrant, error)
}

// TokenService keeps exactly one current upstream access token in the store.
type TokenService struct {
	store     TokenStore
	exchanger TokenExchanger
	cache     *cache.Cache
	now       func() time.Time
}

type RefreshOutput struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

func NewTokenService(store TokenStore, exchanger TokenExchanger) (*TokenService, error) {
	if store == nil {
		return nil, errors.New("usecase: token store must not be nil")
	}
	if exchanger == nil {
		return nil, errors.New("usecase: token exchanger must not be nil")
	}
	return &TokenService{
		store:     store,
		exchanger: exchanger,
		cache:     cache.New(cache.NoExpiration, 0),
		now:       time.Now,
	}, nil
}

// Refresh obtains a new token upstream and replaces whatever the store held.
func (s *TokenService) Refresh(ctx context.Context) (RefreshOutput, error) {
	grant, err := s.exchanger.ExchangeToken(ctx)
	if err != nil {
		msg := lo.CoalesceOrEmpty(upstreamMessage(err), "Token refresh failed")
		return RefreshOutput{}, newMessageError(ErrorUpstream, "guesty_token_exchange_error", msg, err)
	}

	now := s.now().UTC()
	tok := domain.AuthToken{
		Token:     grant.AccessToken,
		ExpiresAt: now.Add(grant.ExpiresIn),
		CreatedAt: now,
	}
	if err := s.store.ReplaceToken(ctx, tok); err != nil {
		return RefreshOutput{}, newMessageError(ErrorInternal, "token_store_write_error", "Token refresh failed", err)
	}
	s.cache.Set(accessTokenCacheKey, tok.Token, grant.ExpiresIn)

	slog.InfoContext(ctx, "guesty token refreshed", "expires_at", tok.ExpiresAt)
	return RefreshOutput{
		AccessToken: grant.AccessToken,
		TokenType:   grant.TokenType,
		ExpiresAt:   tok.ExpiresAt,
	}, nil
}

// Current returns the newest stored token. It always reads the store.
func (s *TokenService) Current(ctx context.Context) (domain.AuthToken, error) {
	tok, err := s.store.LatestToken(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.AuthToken{}, newMessageError(ErrorNotFound, "no_token", "No token found", err)
		}
		return domain.AuthToken{}, newMessageError(ErrorInternal, "token_store_read_error", "Failed to retrieve token", err)
	}
	if tok.Expired(s.now()) {
		return domain.AuthToken{}, newMessageError(ErrorTokenExpired, "token_expired", "Token expired", nil)
	}
	return tok, nil
}

// AccessToken is Current behind an in-process cache that holds the token for
// its remaining lifetime.
func (s *TokenService) AccessToken(ctx context.Context) (string, error) {
	if v, ok := s.cache.Get(accessTokenCacheKey); ok {
		return v.(string), nil
	}
	tok, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	if ttl := tok.ExpiresAt.Sub(s.now()); ttl > 0 {
		s.cache.Set(accessTokenCacheKey, tok.Token, ttl)
	}
	return tok.Token, nil
}
