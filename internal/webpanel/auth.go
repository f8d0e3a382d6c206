package webpanel

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"arsenal-bot/internal/config"
)

const (
	// SessionCookie carries the signed dashboard session.
	SessionCookie = "arsenal_session"
	// APIKeyHeader authenticates bot-to-panel calls.
	APIKeyHeader = "X-API-Key"
	// FreezeTTL bounds how long an OAuth state token stays redeemable.
	FreezeTTL = 10 * time.Minute
)

// Auth errors.
var (
	ErrInvalidSession = errors.New("invalid or expired session")
	ErrInvalidState   = errors.New("invalid or expired login state")
	ErrNotAdmin       = errors.New("dashboard access is restricted to bot admins")
	ErrOAuthDisabled  = errors.New("oauth login is not configured")
)

var discordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/api/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// Claims is the JWT payload of a dashboard session.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Identity is the Discord account behind an OAuth login.
type Identity struct {
	ID       string
	Username string
}

// freezeStore hands out single-use OAuth state tokens.
type freezeStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	ttl    time.Duration
}

func newFreezeStore(ttl time.Duration) *freezeStore {
	return &freezeStore{tokens: make(map[string]time.Time), ttl: ttl}
}

func (f *freezeStore) issue(now time.Time) string {
	token := uuid.NewString()

	f.mu.Lock()
	defer f.mu.Unlock()
	for t, exp := range f.tokens {
		if now.After(exp) {
			delete(f.tokens, t)
		}
	}
	f.tokens[token] = now.Add(f.ttl)
	return token
}

// consume redeems a token. A token is valid at most once.
func (f *freezeStore) consume(token string, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	exp, ok := f.tokens[token]
	if !ok {
		return false
	}
	delete(f.tokens, token)
	return !now.After(exp)
}

// Auth issues and checks dashboard sessions.
type Auth struct {
	secret  []byte
	apiKey  []byte
	ttl     time.Duration
	secure  bool
	isAdmin func(userID string) bool
	oauth   *oauth2.Config
	freeze  *freezeStore
	now     func() time.Time

	// exchange and identify talk to Discord; tests replace them.
	exchange func(ctx context.Context, code string) (*oauth2.Token, error)
	identify func(ctx context.Context, tok *oauth2.Token) (*Identity, error)
}

// NewAuth builds the authenticator. OAuth login is only available when a
// client id is configured.
func NewAuth(cfg config.WebpanelConfig, isAdmin func(userID string) bool) *Auth {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	a := &Auth{
		secret:   []byte(cfg.SecretKey),
		apiKey:   []byte(cfg.APIKey),
		ttl:      ttl,
		secure:   strings.HasPrefix(cfg.PublicURL, "https://"),
		isAdmin:  isAdmin,
		freeze:   newFreezeStore(FreezeTTL),
		now:      time.Now,
		identify: identifyDiscord,
	}
	if cfg.OAuth.ClientID != "" {
		a.oauth = &oauth2.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			RedirectURL:  cfg.OAuth.RedirectURI,
			Scopes:       []string{"identify"},
			Endpoint:     discordEndpoint,
		}
		a.exchange = func(ctx context.Context, code string) (*oauth2.Token, error) {
			return a.oauth.Exchange(ctx, code)
		}
	}
	return a
}

// identifyDiscord resolves the OAuth token owner through the Discord API.
func identifyDiscord(ctx context.Context, tok *oauth2.Token) (*Identity, error) {
	dg, err := discordgo.New("Bearer " + tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}
	u, err := dg.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discord user: %w", err)
	}
	return &Identity{ID: u.ID, Username: u.Username}, nil
}

// IssueToken signs a session for a user.
func (a *Auth) IssueToken(userID, username string) (string, error) {
	now := a.now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			Issuer:    "arsenal-webpanel",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ParseToken validates a session token and returns its claims.
func (a *Auth) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

type claimsKey struct{}

// ClaimsFrom returns the session claims attached by RequireSession.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// RequireSession rejects requests without a valid session cookie. Sessions of
// users who lost admin rights are refused too.
func (a *Auth) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "login required")
			return
		}
		claims, err := a.ParseToken(cookie.Value)
		if err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if !a.isAdmin(claims.UserID) {
			respondError(w, http.StatusForbidden, ErrNotAdmin.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// RequireAPIKey guards the endpoints the bot itself calls.
func (a *Auth) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := []byte(r.Header.Get(APIKeyHeader))
		if len(a.apiKey) == 0 || subtle.ConstantTimeCompare(key, a.apiKey) != 1 {
			respondError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) handleLogin(w http.ResponseWriter, r *http.Request) {
	if a.oauth == nil {
		respondError(w, http.StatusServiceUnavailable, ErrOAuthDisabled.Error())
		return
	}
	state := a.freeze.issue(a.now())
	http.Redirect(w, r, a.oauth.AuthCodeURL(state), http.StatusFound)
}

func (a *Auth) handleCallback(w http.ResponseWriter, r *http.Request) {
	if a.oauth == nil {
		respondError(w, http.StatusServiceUnavailable, ErrOAuthDisabled.Error())
		return
	}

	q := r.URL.Query()
	if !a.freeze.consume(q.Get("state"), a.now()) {
		respondError(w, http.StatusBadRequest, ErrInvalidState.Error())
		return
	}
	code := q.Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	tok, err := a.exchange(ctx, code)
	if err != nil {
		log.Warn().Err(err).Msg("OAuth code exchange failed")
		respondError(w, http.StatusBadGateway, "discord login failed")
		return
	}
	who, err := a.identify(ctx, tok)
	if err != nil {
		log.Warn().Err(err).Msg("OAuth identify failed")
		respondError(w, http.StatusBadGateway, "discord login failed")
		return
	}

	if !a.isAdmin(who.ID) {
		log.Warn().Str("user_id", who.ID).Str("username", who.Username).Msg("Dashboard login refused")
		respondError(w, http.StatusForbidden, ErrNotAdmin.Error())
		return
	}

	session, err := a.IssueToken(who.ID, who.Username)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign session")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session,
		Path:     "/",
		Expires:  a.now().Add(a.ttl),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info().Str("user_id", who.ID).Str("username", who.Username).Msg("Dashboard login")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *Auth) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *Auth) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	respondOK(w, map[string]any{
		"user_id":    claims.UserID,
		"username":   claims.Username,
		"expires_at": claims.ExpiresAt.Time,
	})
}
