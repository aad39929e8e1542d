// Package auth owns the Spotify credentials: the PKCE consent flow, the token
// cache, the client-id file and the authenticated session they produce.
package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"accessify/internal/core"
)

const (
	// callbackShutdownTimeout bounds closing the consent callback listener.
	callbackShutdownTimeout = 5 * time.Second
	// callbackReadTimeout bounds reading the browser's redirect request.
	callbackReadTimeout = 10 * time.Second
)

// Scopes requested during consent.
var Scopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopeUserLibraryModify,
	spotifyauth.ScopeUserFollowRead,
}

// Authenticator is the part of spotifyauth.Authenticator the manager uses.
type Authenticator interface {
	AuthURL(state string, opts ...oauth2.AuthCodeOption) string
	Token(ctx context.Context, state string, r *http.Request, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	RefreshToken(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

// APIFactory builds the vendor handle on top of an authenticated client.
type APIFactory func(httpClient *http.Client) core.API

type Option func(*Manager)

// WithAuthenticatorFactory replaces the spotifyauth authenticator.
func WithAuthenticatorFactory(f func(clientID, redirectURL string) Authenticator) Option {
	return func(m *Manager) { m.newAuth = f }
}

// WithBrowser replaces the system browser opener.
func WithBrowser(open func(url string) error) Option {
	return func(m *Manager) { m.openURL = open }
}

type Manager struct {
	config   *core.SpotifyConfig
	logger   *zap.Logger
	sessions *core.SessionHolder
	newAPI   APIFactory
	newAuth  func(clientID, redirectURL string) Authenticator
	openURL  func(url string) error

	// tokenClient carries the timeout for calls to the accounts service.
	tokenClient *http.Client

	// mu serializes credential changes. Readers go through sessions.
	mu sync.Mutex
}

func NewManager(config *core.SpotifyConfig, sessions *core.SessionHolder, newAPI APIFactory, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		config:      config,
		logger:      logger,
		sessions:    sessions,
		newAPI:      newAPI,
		newAuth:     newSpotifyAuthenticator,
		openURL:     openBrowser,
		tokenClient: &http.Client{Timeout: config.RequestTimeout},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func newSpotifyAuthenticator(clientID, redirectURL string) Authenticator {
	return spotifyauth.New(
		spotifyauth.WithClientID(clientID),
		spotifyauth.WithRedirectURL(redirectURL),
		spotifyauth.WithScopes(Scopes...),
	)
}

// InitializeSilently builds a session from the cached token without user
// interaction. On any failure the session is left unauthenticated.
func (m *Manager) InitializeSilently(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	clientID, err := m.clientID()
	if err != nil {
		m.logger.Info("No client id configured, staying logged out", zap.Error(err))
		m.sessions.Clear()
		return false
	}

	token, err := loadToken(m.config.TokenPath)
	if err != nil {
		m.logger.Info("No usable token cache, staying logged out", zap.Error(err))
		m.sessions.Clear()
		return false
	}

	session, err := m.buildSession(ctx, m.newAuth(clientID, m.config.RedirectURL()), token, m.sessions.Load().DeviceID)
	if err != nil {
		m.logger.Warn("Cached token could not be verified", zap.Error(err))
		m.sessions.Clear()
		return false
	}

	m.sessions.Store(session)
	m.logger.Info("Authenticated from token cache", zap.String("user", session.User))
	return true
}

// ValidateInteractively reuses the cached token when it still works and runs
// the browser consent flow otherwise.
func (m *Manager) ValidateInteractively(ctx context.Context) bool {
	if m.InitializeSilently(ctx) {
		return true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	clientID, err := m.clientID()
	if err != nil {
		m.logger.Warn("Cannot start consent flow", zap.Error(err))
		return false
	}

	auth := m.newAuth(clientID, m.config.RedirectURL())
	token, err := m.authorize(ctx, auth)
	if err != nil {
		m.logger.Warn("Consent flow failed", zap.Error(err))
		return false
	}

	if err := saveToken(m.config.TokenPath, token); err != nil {
		m.logger.Warn("Failed to save token", zap.Error(err))
	}

	session, err := m.buildSession(ctx, auth, token, "")
	if err != nil {
		m.logger.Warn("New token could not be verified", zap.Error(err))
		m.sessions.Clear()
		return false
	}

	m.sessions.Store(session)
	m.logger.Info("OAuth flow completed successfully", zap.String("user", session.User))
	return true
}

// RefreshSilently forces a refresh-token grant and installs a session built on
// the new token, keeping the remembered device. A grant the accounts service
// rejects logs the user out.
func (m *Manager) RefreshSilently(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.sessions.Load()

	clientID, err := m.clientID()
	if err != nil {
		m.logger.Warn("Cannot refresh without client id", zap.Error(err))
		return false
	}
	token, err := loadToken(m.config.TokenPath)
	if err != nil {
		m.logger.Warn("Cannot refresh without cached token", zap.Error(err))
		return false
	}

	auth := m.newAuth(clientID, m.config.RedirectURL())
	refreshed, err := forceRefresh(m.tokenContext(ctx), auth, token)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) || errors.Is(err, ErrNoToken) {
			m.logger.Warn("Refresh token rejected, logging out", zap.Error(err))
			m.sessions.Clear()
			return false
		}
		m.logger.Warn("Token refresh failed", zap.Error(err))
		return false
	}

	if err := saveToken(m.config.TokenPath, refreshed); err != nil {
		m.logger.Warn("Failed to save refreshed token", zap.Error(err))
	}

	session, err := m.buildSession(ctx, auth, refreshed, prev.DeviceID)
	if err != nil {
		m.logger.Warn("Refreshed token could not be verified", zap.Error(err))
		return false
	}

	m.sessions.Store(session)
	m.logger.Info("Access token refreshed", zap.String("user", session.User))
	return true
}

// ClearCredentials deletes the client-id file and the token cache and logs
// out. Files that are already gone are not an error.
func (m *Manager) ClearCredentials() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions.Clear()

	ok := true
	for _, path := range []string{m.config.ClientIDPath, m.config.TokenPath} {
		if err := removeFile(path); err != nil {
			m.logger.Error("Failed to remove credential file", zap.String("path", path), zap.Error(err))
			ok = false
		}
	}

	m.logger.Info("Credentials cleared")
	return ok
}

// SetClientID writes the client-id file. Tokens belong to the client that
// issued them, so a different id also drops the token cache and logs out.
func (m *Manager) SetClientID(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	previous, _ := loadClientID(m.config.ClientIDPath)
	if err := saveClientID(m.config.ClientIDPath, id); err != nil {
		m.logger.Error("Failed to save client id", zap.Error(err))
		return false
	}

	if previous != "" && previous != id {
		if err := removeFile(m.config.TokenPath); err != nil {
			m.logger.Warn("Failed to drop token cache for old client id", zap.Error(err))
		}
		m.sessions.Clear()
		m.logger.Info("Client id changed, logged out")
	}
	return true
}

// clientID reads the client-id file, seeding it from the configuration on
// first use.
func (m *Manager) clientID() (string, error) {
	id, err := loadClientID(m.config.ClientIDPath)
	if !errors.Is(err, ErrNoClientID) || m.config.ClientID == "" {
		return id, err
	}

	if err := saveClientID(m.config.ClientIDPath, m.config.ClientID); err != nil {
		m.logger.Warn("Failed to seed client id file", zap.Error(err))
	}
	return m.config.ClientID, nil
}

// buildSession wires an authenticated client around token and confirms it with
// one CurrentUser call.
func (m *Manager) buildSession(ctx context.Context, auth Authenticator, token *oauth2.Token, deviceID string) (*core.Session, error) {
	source := &persistingSource{
		auth:    auth,
		token:   token,
		path:    m.config.TokenPath,
		client:  m.tokenClient,
		timeout: m.config.RequestTimeout,
		logger:  m.logger,
	}

	httpClient := &http.Client{
		Timeout: m.config.RequestTimeout,
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(token, source),
			Base:   http.DefaultTransport,
		},
	}

	api := m.newAPI(httpClient)

	verifyCtx, cancel := context.WithTimeout(ctx, m.config.RequestTimeout)
	defer cancel()

	user, err := api.CurrentUser(verifyCtx)
	if err != nil {
		return nil, err
	}

	return &core.Session{API: api, DeviceID: deviceID, User: user}, nil
}

// authorize runs the PKCE consent flow against a loopback callback listener.
func (m *Manager) authorize(ctx context.Context, auth Authenticator) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, m.config.AuthTimeout)
	defer cancel()

	verifier := oauth2.GenerateVerifier()
	state := oauth2.GenerateVerifier()

	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(m.config.CallbackPort)))
	if err != nil {
		return nil, err
	}

	type callbackResult struct {
		token *oauth2.Token
		err   error
	}
	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.Token(m.tokenContext(r.Context()), state, r, oauth2.VerifierOption(verifier))
		if err != nil {
			http.Error(w, "Authorization failed. You can close this window.", http.StatusBadRequest)
		} else {
			_, _ = w.Write([]byte("Authorization complete. You can close this window."))
		}
		select {
		case results <- callbackResult{token: token, err: err}:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: callbackReadTimeout}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Warn("Callback listener stopped", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), callbackShutdownTimeout)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := auth.AuthURL(state, oauth2.S256ChallengeOption(verifier))
	m.logger.Info("Waiting for Spotify authorization", zap.String("url", authURL))
	if err := m.openURL(authURL); err != nil {
		m.logger.Warn("Failed to open browser, open the url manually", zap.Error(err))
	}

	select {
	case result := <-results:
		return result.token, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.tokenClient)
}

// forceRefresh runs a refresh-token grant even when token has not expired.
func forceRefresh(ctx context.Context, auth Authenticator, token *oauth2.Token) (*oauth2.Token, error) {
	if token.RefreshToken == "" {
		return nil, ErrNoToken
	}
	expired := *token
	expired.AccessToken = ""
	expired.Expiry = time.Now().Add(-time.Minute)
	return auth.RefreshToken(ctx, &expired)
}

// persistingSource refreshes on demand and writes every new token back to
// the cache.
type persistingSource struct {
	auth    Authenticator
	path    string
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithValue(context.Background(), oauth2.HTTPClient, s.client), s.timeout)
	defer cancel()

	token, err := forceRefresh(ctx, s.auth, s.token)
	if err != nil {
		return nil, err
	}
	s.token = token

	if err := saveToken(s.path, token); err != nil {
		s.logger.Warn("Failed to save refreshed token", zap.Error(err))
	}
	s.logger.Debug("Access token refreshed on expiry")
	return token, nil
}
