package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/locate-ingest/internal/config"
	apperrors "github.com/spec-kit/locate-ingest/pkg/util"
)

// SignatureVerifier authenticates inbound deliveries against the shared
// HMAC-SHA256 secret. Stateless.
type SignatureVerifier struct {
	secret  []byte
	require bool
	logger  *zap.Logger
}

// NewSignatureVerifier constructs a verifier from webhook configuration.
func NewSignatureVerifier(cfg config.WebhookConfig, logger *zap.Logger) *SignatureVerifier {
	return &SignatureVerifier{
		secret:  []byte(cfg.SharedSecret),
		require: cfg.RequireSignature,
		logger:  logger,
	}
}

// ComputeSignature returns the lowercase hex HMAC-SHA256 signature for body.
func ComputeSignature(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature header against body. A missing header is
// accepted with a warning unless signatures are required; that trade-off
// favors delivery reliability over authenticity and is configurable. A header
// that is present but does not verify is an authentication error and the
// delivery must be dropped.
func (v *SignatureVerifier) Verify(body []byte, header string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		if v.require {
			return apperrors.NewAuthenticationError("signature required but missing")
		}
		v.logger.Warn("accepting unsigned webhook delivery")
		return nil
	}
	if len(v.secret) == 0 {
		return apperrors.NewConfigurationError("webhook shared secret not configured")
	}

	candidate, ok := decodeDigest(header)
	if !ok {
		return apperrors.NewAuthenticationError("signature header not decodable")
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), candidate) {
		return apperrors.NewAuthenticationError("signature mismatch")
	}
	return nil
}

// decodeDigest accepts `sha256=<digest>` or a bare digest, hex or standard
// base64 encoded depending on the source's convention.
func decodeDigest(header string) ([]byte, bool) {
	digest := strings.TrimPrefix(header, "sha256=")
	if raw, err := hex.DecodeString(digest); err == nil {
		return raw, true
	}
	if raw, err := base64.StdEncoding.DecodeString(digest); err == nil {
		return raw, true
	}
	return nil, false
}
