package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/melocuore/internal/api"
)

var (
	// ErrNoCredential means no access or refresh token is stored.
	ErrNoCredential = errors.New("not signed in")
	// ErrDenied means the stored credential expired and could not be renewed.
	ErrDenied = errors.New("session expired, sign in again")
	// ErrNotAdmin means the signed-in account lacks the superuser flag.
	ErrNotAdmin = errors.New("administrator access required")
)

// Claims are the fields the backend places in its access tokens.
type Claims struct {
	UserID      api.FlexID `json:"user_id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	IsSuperuser bool       `json:"is_superuser"`
	jwt.RegisteredClaims
}

// Session is the decoded view of the stored credential.
type Session struct {
	Claims  Claims
	Present bool
	Expired bool
}

// Authenticated reports whether the access token is present and unexpired.
func (s Session) Authenticated() bool {
	return s.Present && !s.Expired
}

// UserID returns the numeric account id from the credential.
func (s Session) UserID() (int64, bool) {
	if !s.Present {
		return 0, false
	}
	return s.Claims.UserID.Int64()
}

// IsSuperuser reports whether the credential carries the superuser flag.
func (s Session) IsSuperuser() bool {
	return s.Present && s.Claims.IsSuperuser
}

// Username returns the account name from the credential.
func (s Session) Username() string {
	return s.Claims.Username
}

// TokenAPI is the subset of the API client used to obtain credentials.
type TokenAPI interface {
	ObtainToken(ctx context.Context, username, password string) (api.TokenPair, error)
	RefreshToken(ctx context.Context, refresh string) (api.TokenPair, error)
	Register(ctx context.Context, reg api.Registration) error
}

// ValidationError is a form problem detected before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type credentials struct {
	Access   string `toml:"access"`
	Refresh  string `toml:"refresh"`
	Username string `toml:"username,omitempty"`
}

// Store owns the persisted credential and the session decoded from it.
type Store struct {
	path   string
	tokens TokenAPI
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	creds   credentials
	claims  Claims
	decoded bool

	refreshMu sync.Mutex
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open loads the credential file at path. A missing or unreadable file yields
// a signed-out store.
func Open(path string, tokens TokenAPI, logger *slog.Logger, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("session path is empty")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Store{
		path:   path,
		tokens: tokens,
		logger: logger.With("component", "session"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		s.logger.Warn("read session file failed", "path", path, "error", err)
		return s, nil
	}
	var creds credentials
	if err := toml.Unmarshal(data, &creds); err != nil {
		s.logger.Warn("session file is malformed, ignoring", "path", path, "error", err)
		return s, nil
	}
	s.setLocked(creds)
	return s, nil
}

// AccessToken returns the stored access token, or "" when signed out.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Access
}

// LastUsername returns the account name of the most recent sign-in.
func (s *Store) LastUsername() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Username
}

// Current returns the decoded session. Expiry is evaluated against the clock
// on every call; the token itself is decoded only when it changes.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.decoded {
		return Session{}
	}
	sess := Session{Claims: s.claims, Present: true}
	if exp := s.claims.ExpiresAt; exp != nil && !exp.Time.After(s.now()) {
		sess.Expired = true
	}
	return sess
}

// UserID returns the account id of the current credential.
func (s *Store) UserID() (int64, bool) {
	return s.Current().UserID()
}

// Guard returns an authenticated session, refreshing an expired access token
// once. A failed refresh clears the access token.
func (s *Store) Guard(ctx context.Context) (Session, error) {
	sess := s.Current()
	if sess.Authenticated() {
		return sess, nil
	}
	s.mu.RLock()
	hasRefresh := s.creds.Refresh != ""
	s.mu.RUnlock()
	if !hasRefresh {
		if sess.Present {
			return Session{}, ErrDenied
		}
		return Session{}, ErrNoCredential
	}
	if err := s.Refresh(ctx); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrDenied, err)
	}
	sess = s.Current()
	if !sess.Authenticated() {
		return Session{}, ErrDenied
	}
	return sess, nil
}

// RequireAdmin is Guard plus the superuser check.
func (s *Store) RequireAdmin(ctx context.Context) (Session, error) {
	sess, err := s.Guard(ctx)
	if err != nil {
		return Session{}, err
	}
	if !sess.IsSuperuser() {
		return Session{}, ErrNotAdmin
	}
	return sess, nil
}

// Refresh trades the refresh token for a new access token and persists it.
// On failure the access token is cleared so later calls see a signed-out
// session.
func (s *Store) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.RLock()
	creds := s.creds
	s.mu.RUnlock()
	if creds.Refresh == "" {
		s.clearAccess()
		return ErrNoCredential
	}
	if s.tokens == nil {
		return fmt.Errorf("token api not configured")
	}

	pair, err := s.tokens.RefreshToken(ctx, creds.Refresh)
	if err != nil {
		s.logger.Warn("token refresh failed", "error", err)
		s.clearAccess()
		return fmt.Errorf("refresh token: %w", err)
	}
	creds.Access = pair.Access
	if pair.Refresh != "" {
		creds.Refresh = pair.Refresh
	}
	s.mu.Lock()
	s.setLocked(creds)
	s.mu.Unlock()
	s.logger.Info("access token refreshed")
	return s.persist(creds)
}

// Login obtains and stores a credential for username.
func (s *Store) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Session{}, &ValidationError{Field: "username", Message: "username is required"}
	}
	if password == "" {
		return Session{}, &ValidationError{Field: "password", Message: "password is required"}
	}
	if s.tokens == nil {
		return Session{}, fmt.Errorf("token api not configured")
	}
	pair, err := s.tokens.ObtainToken(ctx, username, password)
	if err != nil {
		return Session{}, err
	}
	creds := credentials{Access: pair.Access, Refresh: pair.Refresh, Username: username}
	s.mu.Lock()
	s.setLocked(creds)
	s.mu.Unlock()
	if err := s.persist(creds); err != nil {
		return Session{}, err
	}
	s.logger.Info("signed in", "username", username)
	return s.Current(), nil
}

// Logout forgets the credential and removes the session file.
func (s *Store) Logout() error {
	s.mu.Lock()
	username := s.creds.Username
	s.setLocked(credentials{})
	s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	s.logger.Info("signed out", "username", username)
	return nil
}

// Register validates the form locally and creates the account. It does not
// sign in.
func (s *Store) Register(ctx context.Context, reg api.Registration) error {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	switch {
	case reg.Username == "":
		return &ValidationError{Field: "username", Message: "username is required"}
	case reg.Password == "":
		return &ValidationError{Field: "password", Message: "password is required"}
	case reg.Password != reg.ConfirmPassword:
		return &ValidationError{Field: "confirm_password", Message: "passwords do not match"}
	}
	if s.tokens == nil {
		return fmt.Errorf("token api not configured")
	}
	return s.tokens.Register(ctx, reg)
}

func (s *Store) clearAccess() {
	s.mu.Lock()
	creds := s.creds
	creds.Access = ""
	s.setLocked(creds)
	s.mu.Unlock()
	if err := s.persist(creds); err != nil {
		s.logger.Warn("persist cleared session failed", "error", err)
	}
}

// setLocked replaces the credential and decodes its claims. Caller holds mu.
func (s *Store) setLocked(creds credentials) {
	s.creds = creds
	s.claims = Claims{}
	s.decoded = false
	if creds.Access == "" {
		return
	}
	claims, err := decode(creds.Access)
	if err != nil {
		s.logger.Warn("access token is not decodable", "error", err)
		return
	}
	s.claims = claims
	s.decoded = true
}

func (s *Store) persist(creds credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := toml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func decode(token string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("decode access token: %w", err)
	}
	return claims, nil
}
