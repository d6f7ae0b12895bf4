package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSigner(secret string, ttl time.Duration, now time.Time) *SignedURLSigner {
	s := NewSignedURLSigner(secret, ttl)
	s.now = func() time.Time { return now }
	return s
}

func TestSignedURLRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	signer := fixedSigner("secret", time.Hour, now)

	token, expiresAt, err := signer.Generate("job-1", "dtr/job-1.csv")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt.UTC())

	jobID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "dtr/job-1.csv", path)
	assert.True(t, expiresAt.Equal(parsedExpiry))
}

func TestSignedURLExpiry(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	signer := fixedSigner("secret", time.Minute, now)
	token, _, err := signer.Generate("job-1", "roster/job-1.pdf")
	require.NoError(t, err)

	signer.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, _, _, err = signer.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)

	jobID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "roster/job-1.pdf", path)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("job-1", "dtr/job-1.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "job-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, _, err = NewSignedURLSigner("other", time.Hour).Parse(token, false)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, _, err = signer.Parse("not-a-token", false)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignedURLGenerateValidation(t *testing.T) {
	_, _, err := NewSignedURLSigner("", time.Hour).Generate("job-1", "a.csv")
	assert.Error(t, err)

	signer := NewSignedURLSigner("secret", 0)
	assert.Equal(t, 24*time.Hour, signer.TTL())
	_, _, err = signer.Generate("", "a.csv")
	assert.Error(t, err)
	_, _, err = signer.Generate("job.1", "a.csv")
	assert.Error(t, err)
}
