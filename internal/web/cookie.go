package web

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const sessionCookieName = "ecg_session"

const cookieKeyInfo = "ecg-analyzer session cookie v1"

// cookieSigner signs session IDs so a client can't pick another session's ID.
type cookieSigner struct {
	key []byte
}

// newCookieSigner derives the signing key from secret. An empty secret gets
// random key material, so cookies don't survive a restart.
func newCookieSigner(secret string) (*cookieSigner, error) {
	ikm := []byte(secret)
	if secret == "" {
		ikm = make([]byte, 32)
		if _, err := rand.Read(ikm); err != nil {
			return nil, fmt.Errorf("failed to generate cookie secret: %w", err)
		}
	}

	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, nil, []byte(cookieKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive cookie key: %w", err)
	}
	return &cookieSigner{key: key}, nil
}

func (cs *cookieSigner) mac(id string) []byte {
	m := hmac.New(sha256.New, cs.key)
	m.Write([]byte(id))
	return m.Sum(nil)
}

// sign returns the cookie value for a session ID.
func (cs *cookieSigner) sign(id string) string {
	return id + "." + base64.RawURLEncoding.EncodeToString(cs.mac(id))
}

// verify returns the session ID of a cookie value if its signature is valid.
func (cs *cookieSigner) verify(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(got, cs.mac(id)) {
		return "", false
	}
	return id, true
}
