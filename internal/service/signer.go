package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// sqlSigningSalt namespaces SQL signatures so a token minted here cannot be
// replayed against any other signed value sharing the process key.
const sqlSigningSalt = "pgdash:query"

// Signer signs SQL text so it can survive a round-trip through URLs and
// forms tamper-evidently. Tokens have the shape "plaintext:signature" and do
// not expire: they are tied to the signing key's lifetime only.
type Signer struct {
	key []byte
}

func NewSigner(key string) *Signer {
	return &Signer{key: []byte(key)}
}

// Sign returns sqlText with its signature appended. Deterministic for a
// given key.
func (s *Signer) Sign(sqlText string) string {
	return sqlText + ":" + s.signature(sqlText)
}

// Unsign recovers the SQL text from a token and reports whether the
// signature checked out. It never fails outright: on mismatch the text before
// the final separator is returned with valid=false, and structurally
// unparseable input comes back unmodified with valid=false. A legacy token
// (URL-safe base64 of a JSON string) decodes to its payload, always
// unverified.
func (s *Signer) Unsign(token string) (sqlText string, valid bool) {
	i := strings.LastIndex(token, ":")
	if i != -1 {
		text, sig := token[:i], token[i+1:]
		if hmac.Equal([]byte(sig), []byte(s.signature(text))) {
			return text, true
		}
	}
	if text, ok := decodeLegacyToken(token); ok {
		return text, false
	}
	if i != -1 {
		return token[:i], false
	}
	return token, false
}

func (s *Signer) signature(text string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(sqlSigningSalt))
	mac.Write([]byte{0})
	mac.Write([]byte(text))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// decodeLegacyToken handles pre-signing links in which the SQL travelled as
// URL-safe base64 of a JSON string. Tried only after signature verification
// fails; the payload is never treated as verified.
func decodeLegacyToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return "", false
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return "", false
	}
	return text, true
}
