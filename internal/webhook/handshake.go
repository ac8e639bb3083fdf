// Package webhook implements the provider's endpoint validation handshake
// and request signature check. Both depend only on the shared secret.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/foxseedlab/attendance/internal/apperror"
)

type HandshakeResponse struct {
	PlainToken     string `json:"plainToken"`
	EncryptedToken string `json:"encryptedToken"`
}

// EncryptToken returns hex(HMAC-SHA256(secret, plainToken)).
func EncryptToken(secret, plainToken string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(plainToken))
	return hex.EncodeToString(h.Sum(nil))
}

// Handshake answers an endpoint.url_validation challenge. A missing secret is
// a configuration error; a missing token is the caller's fault.
func Handshake(secret, plainToken string) (*HandshakeResponse, error) {
	if secret == "" {
		return nil, apperror.NewConfiguration("Missing ZOOM_WEBHOOK_SECRET")
	}
	if plainToken == "" {
		return nil, apperror.NewValidation("missing plainToken in validation payload")
	}
	return &HandshakeResponse{
		PlainToken:     plainToken,
		EncryptedToken: EncryptToken(secret, plainToken),
	}, nil
}
