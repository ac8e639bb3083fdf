package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/foxseedlab/attendance/internal/apperror"
)

const (
	SignatureHeader = "x-zm-signature"
	TimestampHeader = "x-zm-request-timestamp"

	signatureVersion = "v0"
	maxRequestAge    = 5 * time.Minute
)

type SignatureValidator struct {
	secret string
	now    func() time.Time
}

func NewSignatureValidator(secret string) *SignatureValidator {
	return &SignatureValidator{secret: secret, now: time.Now}
}

// Sign returns the header value the provider would send for body at ts.
func Sign(secret, ts string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(signatureVersion + ":" + ts + ":"))
	h.Write(body)
	return signatureVersion + "=" + hex.EncodeToString(h.Sum(nil))
}

// Validate checks the v0 HMAC signature and rejects requests older than five
// minutes.
func (v *SignatureValidator) Validate(body []byte, signature, ts string) error {
	if v.secret == "" {
		return apperror.NewConfiguration("webhook secret token not configured")
	}
	if signature == "" || ts == "" {
		return apperror.NewUnauthorized("missing webhook signature headers")
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return apperror.NewUnauthorized("invalid webhook timestamp", err)
	}
	if age := v.now().Sub(time.Unix(sec, 0)); age > maxRequestAge {
		return apperror.NewUnauthorized(fmt.Sprintf("webhook request too old (%s)", age.Truncate(time.Second)))
	}
	expected := strings.TrimPrefix(Sign(v.secret, ts, body), signatureVersion+"=")
	provided := strings.TrimPrefix(signature, signatureVersion+"=")
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return apperror.NewUnauthorized("invalid webhook signature")
	}
	return nil
}
