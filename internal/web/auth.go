package web

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	sessionCookieName = "mentor_session"
	sessionTokenType  = "session"
)

type signedPayload struct {
	Exp int64  `json:"exp"`
	Sub string `json:"sub"` // session id
	Typ string `json:"typ,omitempty"`
}

func secretKeyPath(stateDir string) string {
	return filepath.Join(stateDir, "web", "secret.key")
}

// loadOrInitSecretKey returns the cookie signing key, creating it on first use.
// An empty stateDir yields a process-local key.
func loadOrInitSecretKey(stateDir string) ([]byte, error) {
	stateDir = strings.TrimSpace(stateDir)
	if stateDir == "" {
		return newRandomKey()
	}
	path := secretKeyPath(stateDir)
	if b, err := os.ReadFile(path); err == nil && len(strings.TrimSpace(string(b))) > 0 {
		return []byte(strings.TrimSpace(string(b))), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	key, err := newRandomKey()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, append(key, '\n'), 0o600); err != nil {
		return nil, err
	}
	return key, nil
}

func newRandomKey() ([]byte, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	return []byte(base64.RawURLEncoding.EncodeToString(raw)), nil
}

func signToken(secret []byte, payload signedPayload) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	p := base64.RawURLEncoding.EncodeToString(b)
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(p))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return p + "." + sig, nil
}

func verifyToken(secret []byte, token string, now time.Time) (signedPayload, error) {
	token = strings.TrimSpace(token)
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return signedPayload{}, errors.New("invalid token format")
	}
	p, sig := parts[0], parts[1]

	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(p))
	want := mac.Sum(nil)
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(want, got) {
		return signedPayload{}, errors.New("invalid token signature")
	}

	raw, err := base64.RawURLEncoding.DecodeString(p)
	if err != nil {
		return signedPayload{}, errors.New("invalid token payload")
	}
	var sp signedPayload
	if err := json.Unmarshal(raw, &sp); err != nil {
		return signedPayload{}, errors.New("invalid token payload")
	}
	if sp.Exp == 0 {
		return signedPayload{}, errors.New("token missing exp")
	}
	if now.Unix() > sp.Exp {
		return signedPayload{}, errors.New("token expired")
	}
	if sp.Typ != sessionTokenType {
		return signedPayload{}, errors.New("not a session token")
	}
	if _, err := uuid.Parse(sp.Sub); err != nil {
		return signedPayload{}, errors.New("token subject is not a session id")
	}
	return sp, nil
}

// newSessionToken mints a fresh session id and its signed cookie value.
func newSessionToken(secret []byte, ttl time.Duration, now time.Time) (id, token string, err error) {
	id = uuid.NewString()
	token, err = signToken(secret, signedPayload{
		Typ: sessionTokenType,
		Sub: id,
		Exp: now.Add(ttl).Unix(),
	})
	return id, token, err
}
