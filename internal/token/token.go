// Package token decodes the payload segment of a compact JWS token for
// display purposes. Nothing here verifies a signature; the backend does
// that. Claims extracted here are hints (user id, username, role), always
// cross-checked against the explicit login response fields.
package token

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
)

// Decode splits a compact token into its three segments and parses the
// payload as a JSON object. It returns false for anything that is not a
// well-formed three-segment token, and never panics on garbage input.
//
// The header and signature segments are deliberately not inspected: a token
// with an unreadable header but a readable payload still yields claims,
// matching the tolerant decode the web client shipped with.
func Decode(raw string) (map[string]any, bool) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, false
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return nil, false
	}

	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, false
	}
	return claims, true
}

// decodeSegment tries the encodings tokens show up with in the wild:
// unpadded base64url per RFC 7515, then the padded and standard variants.
func decodeSegment(seg string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(seg); err == nil {
		return b, nil
	}
	if b, err := base64.URLEncoding.DecodeString(seg); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(seg)
}

// String returns claims[key] when it is a string, empty otherwise.
func String(claims map[string]any, key string) string {
	if claims == nil {
		return ""
	}
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// Number returns claims[key] coerced to int64. JSON numbers arrive as
// float64; numeric strings (a common shape for "sub") are parsed too.
func Number(claims map[string]any, key string) (int64, bool) {
	if claims == nil {
		return 0, false
	}
	switch v := claims[key].(type) {
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
