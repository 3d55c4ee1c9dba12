package api

import (
	"net/http"
	"strings"
)

// TokenSource yields the current bearer token, empty when logged out.
// *session.Store satisfies it.
type TokenSource interface {
	Token() string
}

// publicEndpoints never receive an Authorization header, token or not.
var publicEndpoints = []string{
	"/auth/login",
	"/auth/registro",
}

// bearerTransport decorates every outbound request with
// "Authorization: Bearer <token>" unless the target is a public endpoint.
type bearerTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func newBearerTransport(base http.RoundTripper, tokens TokenSource) *bearerTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &bearerTransport{base: base, tokens: tokens}
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if isPublic(req.URL.Path) {
		return t.base.RoundTrip(req)
	}

	if tok := t.tokens.Token(); tok != "" {
		// Per-request clone; RoundTrippers must not mutate the original.
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return t.base.RoundTrip(req)
}

func isPublic(path string) bool {
	for _, p := range publicEndpoints {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}
