// ABOUTME: This file drives the OAuth2 authorization code flow with PKCE
// ABOUTME: Begin creates the provider URL, Complete redeems the callback into app tokens

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"xmarks/models"
	"xmarks/repository"
	"xmarks/security"
)

// Session lifetime for a pending authorization. Callbacks arriving later
// than this are rejected.
const authSessionTTL = 10 * time.Minute

// OAuth flow errors.
var (
	ErrInvalidAuthState = errors.New("authorization state is invalid, expired or already used")
	ErrProviderDenied   = errors.New("provider reported an authorization error")
)

// OAuthConfig holds the provider settings the flow needs.
type OAuthConfig struct {
	ClientID    string
	RedirectURI string
	AuthBaseURL string
	Scopes      []string
}

// OAuthService orchestrates login and callback handling.
type OAuthService struct {
	cfg        OAuthConfig
	sessions   repository.SessionRepository
	authDriver AuthDriver
	apiDriver  APIDriver
	users      repository.UserRepository
	tokens     repository.TokenRepository
	appTokens  *AppTokenService
	logger     *slog.Logger
}

// NewOAuthService creates an OAuth flow service.
func NewOAuthService(
	cfg OAuthConfig,
	sessions repository.SessionRepository,
	authDriver AuthDriver,
	apiDriver APIDriver,
	users repository.UserRepository,
	tokens repository.TokenRepository,
	appTokens *AppTokenService,
	logger *slog.Logger,
) *OAuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &OAuthService{
		cfg:        cfg,
		sessions:   sessions,
		authDriver: authDriver,
		apiDriver:  apiDriver,
		users:      users,
		tokens:     tokens,
		appTokens:  appTokens,
		logger:     logger.With("component", "oauth_service"),
	}
}

// BeginAuthorization generates PKCE material, stores the pending session and
// returns the provider authorization URL to redirect the user to.
func (s *OAuthService) BeginAuthorization(ctx context.Context) (string, error) {
	state, err := security.GenerateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	verifier, err := security.GenerateCodeVerifier()
	if err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}

	session := &models.OAuthSession{
		CodeVerifier: verifier,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.sessions.Save(ctx, state, session, authSessionTTL); err != nil {
		return "", fmt.Errorf("failed to save authorization session: %w", err)
	}

	params := url.Values{
		"response_type":         {"code"},
		"client_id":             {s.cfg.ClientID},
		"redirect_uri":          {s.cfg.RedirectURI},
		"scope":                 {strings.Join(s.cfg.Scopes, " ")},
		"state":                 {state},
		"code_challenge":        {security.ChallengeS256(verifier)},
		"code_challenge_method": {"S256"},
	}

	authURL := strings.TrimSuffix(s.cfg.AuthBaseURL, "/") + "/i/oauth2/authorize?" + params.Encode()

	s.logger.Info("Authorization started", "state_prefix", state[:8])
	return authURL, nil
}

// AuthResult is what a completed authorization yields.
type AuthResult struct {
	User   *models.User
	Tokens *TokenPair
}

// CompleteAuthorization redeems a provider callback. The state is consumed
// exactly once; the code is exchanged, the account profile fetched, the user
// created on first login and the provider token stored encrypted. Returns
// the application token pair for the session.
func (s *OAuthService) CompleteAuthorization(ctx context.Context, state, code string) (*AuthResult, error) {
	session, err := s.sessions.Consume(ctx, state)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrInvalidAuthState
		}
		return nil, fmt.Errorf("failed to consume authorization session: %w", err)
	}

	resp, err := s.authDriver.ExchangeCode(ctx, code, session.CodeVerifier)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	profileData, err := s.apiDriver.GetMe(ctx, resp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account profile: %w", err)
	}

	user, err := s.users.CreateOrFetch(ctx, &models.XProfile{
		XID:             profileData.ID,
		Username:        profileData.Username,
		Name:            profileData.Name,
		ProfileImageURL: profileData.ProfileImageURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	providerToken := models.NewProviderToken(resp, "")
	providerToken.UserID = user.ID
	if err := s.tokens.Upsert(ctx, providerToken); err != nil {
		return nil, fmt.Errorf("failed to store provider token: %w", err)
	}

	pair, err := s.appTokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue application tokens: %w", err)
	}

	s.logger.Info("Authorization completed", "user_id", user.ID, "username", user.Username)
	return &AuthResult{User: user, Tokens: pair}, nil
}
