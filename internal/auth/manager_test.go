package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"accessify/internal/core"
	"accessify/internal/core/coretest"
)

type fakeAuthenticator struct {
	mu           sync.Mutex
	exchanged    *oauth2.Token
	refreshed    *oauth2.Token
	refreshErr   error
	refreshCalls int
}

func (f *fakeAuthenticator) AuthURL(state string, _ ...oauth2.AuthCodeOption) string {
	return "https://accounts.example.com/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeAuthenticator) Token(_ context.Context, state string, r *http.Request, _ ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	if r.FormValue("state") != state {
		return nil, errors.New("state mismatch")
	}
	if r.FormValue("code") == "" {
		return nil, errors.New("missing code")
	}
	return f.exchanged, nil
}

func (f *fakeAuthenticator) RefreshToken(_ context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if token.Valid() {
		return nil, errors.New("refresh called with a valid token")
	}
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshed, nil
}

type fixture struct {
	manager  *Manager
	sessions *core.SessionHolder
	api      *coretest.FakeAPI
	auth     *fakeAuthenticator
	config   *core.SpotifyConfig
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	dir := t.TempDir()
	config := &core.SpotifyConfig{
		ConfigDir:      dir,
		TokenPath:      filepath.Join(dir, "token.json"),
		ClientIDPath:   filepath.Join(dir, "client_id.json"),
		CallbackPort:   freePort(t),
		RequestTimeout: time.Second,
		AuthTimeout:    5 * time.Second,
	}

	f := &fixture{
		sessions: core.NewSessionHolder(),
		api:      &coretest.FakeAPI{User: "Ada"},
		auth:     &fakeAuthenticator{},
		config:   config,
	}

	opts = append([]Option{
		WithAuthenticatorFactory(func(string, string) Authenticator { return f.auth }),
		WithBrowser(func(string) error { return errors.New("no browser in tests") }),
	}, opts...)

	f.manager = NewManager(config, f.sessions, func(*http.Client) core.API { return f.api }, zap.NewNop(), opts...)
	return f
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func (f *fixture) writeCredentials(t *testing.T) {
	t.Helper()
	if err := saveClientID(f.config.ClientIDPath, "client-1"); err != nil {
		t.Fatal(err)
	}
	token := &oauth2.Token{AccessToken: "access-1", RefreshToken: "refresh-1", Expiry: time.Now().Add(time.Hour)}
	if err := saveToken(f.config.TokenPath, token); err != nil {
		t.Fatal(err)
	}
}

func TestInitializeSilently_NoCredentials(t *testing.T) {
	f := newFixture(t)

	if f.manager.InitializeSilently(context.Background()) {
		t.Error("InitializeSilently() = true, expected false without credentials")
	}
	if f.sessions.Load().Authenticated() {
		t.Error("session should stay unauthenticated")
	}
	if calls := f.api.Calls(); len(calls) != 0 {
		t.Errorf("expected no vendor calls, got %v", calls)
	}
}

func TestInitializeSilently_VerifiesCachedToken(t *testing.T) {
	f := newFixture(t)
	f.writeCredentials(t)

	if !f.manager.InitializeSilently(context.Background()) {
		t.Fatal("InitializeSilently() = false, expected true")
	}

	session := f.sessions.Load()
	if !session.Authenticated() || session.User != "Ada" {
		t.Errorf("session = %+v, expected authenticated as Ada", session)
	}
	if got := len(f.api.Calls("CurrentUser")); got != 1 {
		t.Errorf("CurrentUser calls = %d, expected 1", got)
	}
}

func TestInitializeSilently_VerificationFailure(t *testing.T) {
	f := newFixture(t)
	f.writeCredentials(t)
	f.api.SetErr("CurrentUser", &core.VendorError{Status: http.StatusUnauthorized, Message: "revoked"})

	if f.manager.InitializeSilently(context.Background()) {
		t.Error("InitializeSilently() = true, expected false")
	}
	if f.sessions.Load().Authenticated() {
		t.Error("session API must stay nil until a verification call succeeds")
	}
}

func TestClientID_SeededFromConfig(t *testing.T) {
	f := newFixture(t)
	f.config.ClientID = "from-env"

	id, err := f.manager.clientID()
	if err != nil || id != "from-env" {
		t.Fatalf("clientID() = %q, %v", id, err)
	}
	if stored, err := loadClientID(f.config.ClientIDPath); err != nil || stored != "from-env" {
		t.Errorf("client id file = %q, %v", stored, err)
	}
}

func TestClearCredentials_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.writeCredentials(t)
	f.manager.InitializeSilently(context.Background())

	for i := 0; i < 2; i++ {
		if !f.manager.ClearCredentials() {
			t.Errorf("ClearCredentials() call %d = false, expected true", i+1)
		}
	}

	for _, path := range []string{f.config.TokenPath, f.config.ClientIDPath} {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s still exists: %v", path, err)
		}
	}
	if f.sessions.Load().Authenticated() {
		t.Error("session should be cleared")
	}
}

func TestRefreshSilently_KeepsDeviceAndPersists(t *testing.T) {
	f := newFixture(t)
	f.writeCredentials(t)
	f.manager.InitializeSilently(context.Background())

	prev := f.sessions.Load()
	f.sessions.SetDevice(prev, "device-2")
	f.auth.refreshed = &oauth2.Token{AccessToken: "access-2", RefreshToken: "refresh-2", Expiry: time.Now().Add(time.Hour)}

	if !f.manager.RefreshSilently(context.Background()) {
		t.Fatal("RefreshSilently() = false, expected true")
	}

	session := f.sessions.Load()
	if session.DeviceID != "device-2" {
		t.Errorf("DeviceID = %q, expected device-2 to be preserved", session.DeviceID)
	}
	if session == prev {
		t.Error("expected a replacement session")
	}

	token, err := loadToken(f.config.TokenPath)
	if err != nil || token.AccessToken != "access-2" {
		t.Errorf("token cache = %+v, %v; expected access-2", token, err)
	}
	if f.auth.refreshCalls != 1 {
		t.Errorf("refresh calls = %d, expected 1", f.auth.refreshCalls)
	}
}

func TestRefreshSilently_RejectedGrantLogsOut(t *testing.T) {
	f := newFixture(t)
	f.writeCredentials(t)
	f.manager.InitializeSilently(context.Background())
	f.auth.refreshErr = &oauth2.RetrieveError{ErrorCode: "invalid_grant"}

	if f.manager.RefreshSilently(context.Background()) {
		t.Fatal("RefreshSilently() = true, expected false")
	}
	if f.sessions.Load().Authenticated() {
		t.Error("a rejected refresh token should log out")
	}
}

func TestRefreshSilently_NetworkFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.writeCredentials(t)
	f.manager.InitializeSilently(context.Background())
	f.auth.refreshErr = errors.New("dial tcp: connection refused")

	if f.manager.RefreshSilently(context.Background()) {
		t.Fatal("RefreshSilently() = true, expected false")
	}
	if !f.sessions.Load().Authenticated() {
		t.Error("a transient refresh failure should keep the session")
	}
}

func TestSetClientID(t *testing.T) {
	f := newFixture(t)
	f.writeCredentials(t)
	f.manager.InitializeSilently(context.Background())

	if f.manager.SetClientID("   ") {
		t.Error("SetClientID(blank) = true, expected false")
	}

	if !f.manager.SetClientID("client-1") {
		t.Fatal("SetClientID(same) = false")
	}
	if !f.sessions.Load().Authenticated() {
		t.Error("same client id should keep the session")
	}

	if !f.manager.SetClientID("client-2") {
		t.Fatal("SetClientID(new) = false")
	}
	if f.sessions.Load().Authenticated() {
		t.Error("new client id should log out")
	}
	if _, err := loadToken(f.config.TokenPath); !errors.Is(err, ErrNoToken) {
		t.Errorf("token cache should be dropped, got %v", err)
	}
}

func TestValidateInteractively_RunsConsentFlow(t *testing.T) {
	var (
		f           *fixture
		callbackErr error
	)
	done := make(chan struct{})

	browser := func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		state := u.Query().Get("state")
		go func() {
			defer close(done)
			resp, err := http.Get(f.config.RedirectURL() + "?code=abc&state=" + url.QueryEscape(state))
			if err != nil {
				callbackErr = err
				return
			}
			resp.Body.Close()
		}()
		return nil
	}

	f = newFixture(t, WithBrowser(browser))
	if err := saveClientID(f.config.ClientIDPath, "client-1"); err != nil {
		t.Fatal(err)
	}
	f.auth.exchanged = &oauth2.Token{AccessToken: "fresh", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)}

	if !f.manager.ValidateInteractively(context.Background()) {
		t.Fatal("ValidateInteractively() = false, expected true")
	}
	<-done
	if callbackErr != nil {
		t.Fatalf("callback request failed: %v", callbackErr)
	}

	if token, err := loadToken(f.config.TokenPath); err != nil || token.AccessToken != "fresh" {
		t.Errorf("token cache = %+v, %v", token, err)
	}
	if f.sessions.Load().User != "Ada" {
		t.Errorf("session user = %q, expected Ada", f.sessions.Load().User)
	}
}

func TestValidateInteractively_NoClientID(t *testing.T) {
	f := newFixture(t)

	if f.manager.ValidateInteractively(context.Background()) {
		t.Error("ValidateInteractively() = true, expected false without client id")
	}
}
