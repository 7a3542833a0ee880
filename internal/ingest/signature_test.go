package ingest

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/locate-ingest/internal/config"
	apperrors "github.com/spec-kit/locate-ingest/pkg/util"
)

func newVerifier(t *testing.T, secret string, strict bool) *SignatureVerifier {
	t.Helper()
	return NewSignatureVerifier(config.WebhookConfig{
		SharedSecret:     secret,
		RequireSignature: strict,
	}, zap.NewNop())
}

func TestVerifyHexDigest(t *testing.T) {
	secret := "super-secret"
	body := []byte(`{"TicketNumber":"T1"}`)
	sig := ComputeSignature([]byte(secret), body)

	v := newVerifier(t, secret, false)
	require.NoError(t, v.Verify(body, sig))
	require.NoError(t, v.Verify(body, "sha256="+sig))
}

func TestVerifyBase64Digest(t *testing.T) {
	secret := "super-secret"
	body := []byte(`{"TicketNumber":"T1"}`)
	raw, err := hex.DecodeString(ComputeSignature([]byte(secret), body))
	require.NoError(t, err)
	sig := base64.StdEncoding.EncodeToString(raw)

	v := newVerifier(t, secret, false)
	require.NoError(t, v.Verify(body, sig))
	require.NoError(t, v.Verify(body, "sha256="+sig))
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	secret := "super-secret"
	body := []byte(`{"TicketNumber":"T1"}`)
	sig := ComputeSignature([]byte(secret), body)

	tampered := append([]byte{}, body...)
	tampered[0] = '['

	v := newVerifier(t, secret, false)
	err := v.Verify(tampered, sig)
	require.Error(t, err)
	require.Equal(t, "AUTHENTICATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"TicketNumber":"T1"}`)
	sig := ComputeSignature([]byte("other-secret"), body)

	v := newVerifier(t, "super-secret", false)
	require.Error(t, v.Verify(body, sig))
}

func TestVerifyMissingHeaderPermissive(t *testing.T) {
	v := newVerifier(t, "super-secret", false)
	require.NoError(t, v.Verify([]byte(`{}`), ""))
}

func TestVerifyMissingHeaderRequired(t *testing.T) {
	v := newVerifier(t, "super-secret", true)
	err := v.Verify([]byte(`{}`), "")
	require.Error(t, err)
	require.Equal(t, "AUTHENTICATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestVerifyMissingSecretWithHeader(t *testing.T) {
	v := newVerifier(t, "", false)
	err := v.Verify([]byte(`{}`), "deadbeef")
	require.Error(t, err)
	require.Equal(t, "CONFIGURATION_ERROR", apperrors.ToDomainError(err).Code)
}

func TestVerifyUndecodableHeader(t *testing.T) {
	v := newVerifier(t, "super-secret", false)
	err := v.Verify([]byte(`{}`), "!!not-a-digest!!")
	require.Error(t, err)
	require.Equal(t, "AUTHENTICATION_FAILED", apperrors.ToDomainError(err).Code)
}
