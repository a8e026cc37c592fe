// Package signer issues short-lived signed download references for stored
// objects. The references point at a download gateway that verifies the same
// HMAC before serving the object; issuing and verifying share one secret.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTTL is the validity window used when the caller passes a zero TTL.
const DefaultTTL = time.Hour

// Static errors.
var (
	ErrSecretEmpty  = errors.New("signing secret cannot be empty")
	ErrBaseURLEmpty = errors.New("public base URL cannot be empty")
	ErrKeyEmpty     = errors.New("object key cannot be empty")
)

// HMACSigner signs object keys with an expiry using HMAC-SHA256.
type HMACSigner struct {
	secret  []byte
	baseURL string
	now     func() time.Time
}

// New creates a signer for the given shared secret and public gateway base URL.
func New(secret, baseURL string) (*HMACSigner, error) {
	if secret == "" {
		return nil, ErrSecretEmpty
	}

	if baseURL == "" {
		return nil, ErrBaseURLEmpty
	}

	return &HMACSigner{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}, nil
}

// SignGet returns a download URL for key that expires after ttl. A zero or
// negative ttl falls back to DefaultTTL.
func (s *HMACSigner) SignGet(key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", ErrKeyEmpty
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	expires := s.now().Add(ttl).Unix()
	signature := s.sign(key, expires)

	return fmt.Sprintf(
		"%s/%s?expires=%d&sig=%s",
		s.baseURL,
		key,
		expires,
		signature,
	), nil
}

// Verify reports whether a signature is valid for the key and still within its
// expiry window.
func (s *HMACSigner) Verify(key string, expires int64, signature string) bool {
	if key == "" || s.now().Unix() > expires {
		return false
	}

	expected := s.sign(key, expires)

	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *HMACSigner) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "GET\n%s\n%d", key, expires)

	return hex.EncodeToString(mac.Sum(nil))
}
