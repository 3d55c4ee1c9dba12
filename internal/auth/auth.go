// Package auth implements the authentication gate: logging in against the
// backend, resolving identity fields from the response and the decoded
// token, and persisting them to the session store consumed by the request
// transport and the route guard.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jmoralesv/enlace/internal/api"
	"github.com/jmoralesv/enlace/internal/logging"
	"github.com/jmoralesv/enlace/internal/model"
	"github.com/jmoralesv/enlace/internal/session"
	"github.com/jmoralesv/enlace/internal/token"
)

// DefaultRole is assumed when neither the login response nor the token
// carries a role.
const DefaultRole = "ROLE_USER"

const rolePrefix = "ROLE_"

var (
	// ErrNoToken means the login call succeeded but the response had no token.
	ErrNoToken = errors.New("no valid access token in login response")

	// ErrUnauthorized maps 401/403 login failures.
	ErrUnauthorized = errors.New("invalid username or password")

	// ErrUnreachable maps connection-level failures.
	ErrUnreachable = errors.New("could not connect to the backend")

	// ErrUsernameTaken maps a 409 from registration.
	ErrUsernameTaken = errors.New("username already in use")
)

// Backend is the slice of the API client the gate needs.
type Backend interface {
	Login(ctx context.Context, username, password string) (map[string]any, error)
	Register(ctx context.Context, user model.User) error
}

// Gate authenticates users and owns the persisted session. One Gate is
// shared by the CLI, the guard and (through the session store) the request
// transport, so everything observes the same session state.
type Gate struct {
	backend Backend
	store   *session.Store
	logger  logging.Logger
}

// NewGate wires the gate to the backend and the session store.
func NewGate(backend Backend, store *session.Store, logger logging.Logger) *Gate {
	return &Gate{
		backend: backend,
		store:   store,
		logger:  logger.With(logging.Field{Key: "component", Value: "auth"}),
	}
}

// Login authenticates and persists the resolved session. The response token
// is mandatory; user id, username and role are resolved by priority from the
// response fields first and the decoded token second.
func (g *Gate) Login(ctx context.Context, username, password string) (session.Session, error) {
	resp, err := g.backend.Login(ctx, username, password)
	if err != nil {
		return session.Session{}, loginError(err)
	}

	tok, _ := resp["token"].(string)
	if tok == "" {
		return session.Session{}, ErrNoToken
	}

	claims, _ := token.Decode(tok)

	sess := session.Session{
		Token:    tok,
		UserID:   resolveUserID(resp, claims),
		Username: resolveUsername(resp, claims, username),
		Role:     NormalizeRole(resolveRole(resp, claims)),
	}

	if err := g.store.Save(sess); err != nil {
		return session.Session{}, fmt.Errorf("persist session: %w", err)
	}

	g.logger.Debug("login succeeded",
		logging.Field{Key: "userId", Value: sess.UserID},
		logging.Field{Key: "role", Value: sess.Role})

	return sess, nil
}

// Logout clears every persisted session field.
func (g *Gate) Logout() error {
	if err := g.store.Clear(); err != nil {
		return err
	}
	g.logger.Debug("session cleared")
	return nil
}

// IsAuthenticated reports whether a token is present. Expiry is not checked
// client-side; an expired token surfaces as a 401 on the next request.
func (g *Gate) IsAuthenticated() bool {
	return g.store.Token() != ""
}

// IsAdmin reports whether the stored role is an admin role, in any of the
// spellings the backend has used.
func (g *Gate) IsAdmin() bool {
	switch g.store.Role() {
	case "ROLE_ADMIN", "ADMIN", "admin":
		return true
	}
	return false
}

// UserID returns the persisted user id, false when logged out.
func (g *Gate) UserID() (int64, bool) {
	return g.store.UserID()
}

// Register forwards to the registration endpoint, translating connection
// failures and username conflicts into fixed errors and passing any other
// backend message through verbatim.
func (g *Gate) Register(ctx context.Context, user model.User) error {
	err := g.backend.Register(ctx, user)
	if err == nil {
		return nil
	}

	apiErr, ok := err.(*api.Error)
	if !ok {
		return err
	}
	switch {
	case apiErr.Unreachable():
		return ErrUnreachable
	case apiErr.Status == http.StatusConflict:
		return ErrUsernameTaken
	case apiErr.Message != "":
		return errors.New(apiErr.Message)
	default:
		return err
	}
}

func loginError(err error) error {
	apiErr, ok := err.(*api.Error)
	if !ok {
		return err
	}
	switch {
	case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
		return ErrUnauthorized
	case apiErr.Unreachable():
		return ErrUnreachable
	default:
		return err
	}
}

// NormalizeRole applies the default role and ensures the ROLE_ namespace
// prefix the backend's security layer expects.
func NormalizeRole(role string) string {
	if role == "" {
		return DefaultRole
	}
	if !strings.HasPrefix(role, rolePrefix) {
		return rolePrefix + strings.ToUpper(role)
	}
	return role
}

func resolveUserID(resp map[string]any, claims map[string]any) int64 {
	for _, key := range []string{"usuarioId", "userId"} {
		if id, ok := numberField(resp, key); ok {
			return id
		}
	}
	for _, key := range []string{"usuarioId", "userId", "id", "sub"} {
		if id, ok := token.Number(claims, key); ok {
			return id
		}
	}
	return 0
}

func resolveUsername(resp map[string]any, claims map[string]any, submitted string) string {
	if v, ok := resp["username"].(string); ok && v != "" {
		return v
	}
	if v := token.String(claims, "username"); v != "" {
		return v
	}
	if v := token.String(claims, "email"); v != "" {
		return v
	}
	return submitted
}

func resolveRole(resp map[string]any, claims map[string]any) string {
	for _, key := range []string{"role", "rol"} {
		if v, ok := resp[key].(string); ok && v != "" {
			return v
		}
	}
	for _, key := range []string{"role", "rol"} {
		if v := token.String(claims, key); v != "" {
			return v
		}
	}
	return firstAuthority(claims)
}

// firstAuthority handles the Spring Security authorities claim, which shows
// up either as [{"authority":"ROLE_X"}] or as plain ["ROLE_X"].
func firstAuthority(claims map[string]any) string {
	list, ok := claims["authorities"].([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	switch first := list[0].(type) {
	case map[string]any:
		if v, ok := first["authority"].(string); ok {
			return v
		}
	case string:
		return first
	}
	return ""
}

// numberField coerces a response field to int64, accepting the numeric and
// string shapes different backend versions have emitted.
func numberField(m map[string]any, key string) (int64, bool) {
	return token.Number(m, key)
}
