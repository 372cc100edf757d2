package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("super-secret")

func newTestService(t *testing.T, now time.Time) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testSecret)
	require.NoError(t, err)
	svc.now = func() time.Time { return now }
	return svc
}

func flipChar(s string, i int) string {
	replacement := byte('A')
	if s[i] == 'A' {
		replacement = 'B'
	}
	return s[:i] + string(replacement) + s[i+1:]
}

func TestNewTokenService_RequiresSecret(t *testing.T) {
	_, err := NewTokenService(nil)
	require.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	svc, err := NewTokenService(testSecret)
	require.NoError(t, err)

	tok, err := svc.Issue("a@x.com", time.Hour)
	require.NoError(t, err)

	subject, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", subject)
}

func TestIssue_RequiresSubject(t *testing.T) {
	svc := newTestService(t, time.Now())
	_, err := svc.Issue("  ", time.Hour)
	require.Error(t, err)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	issuedAt := time.Unix(1_700_000_000, 0)
	tok, err := newTestService(t, issuedAt).Issue("a@x.com", time.Minute)
	require.NoError(t, err)

	_, err = newTestService(t, issuedAt.Add(59*time.Second)).Verify(tok)
	require.NoError(t, err)

	_, err = newTestService(t, issuedAt.Add(time.Minute)).Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerify_ZeroAndNegativeTTL(t *testing.T) {
	svc := newTestService(t, time.Unix(1_700_000_000, 0))

	for _, ttl := range []time.Duration{0, -time.Second} {
		tok, err := svc.Issue("a@x.com", ttl)
		require.NoError(t, err)

		_, err = svc.Verify(tok)
		require.ErrorIs(t, err, ErrInvalidToken, "ttl %s", ttl)
	}
}

func TestVerify_SubSecondTTLRoundsUp(t *testing.T) {
	issuedAt := time.Unix(1_700_000_000, 100*int64(time.Millisecond))
	tok, err := newTestService(t, issuedAt).Issue("a@x.com", 800*time.Millisecond)
	require.NoError(t, err)

	_, err = newTestService(t, issuedAt).Verify(tok)
	require.NoError(t, err)

	_, err = newTestService(t, issuedAt.Add(850*time.Millisecond)).Verify(tok)
	require.NoError(t, err)

	_, err = newTestService(t, time.Unix(1_700_000_001, 0)).Verify(tok)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	tok, err := newTestService(t, time.Now()).Issue("a@x.com", time.Hour)
	require.NoError(t, err)

	other, err := NewTokenService([]byte("other-secret"))
	require.NoError(t, err)
	_, err = other.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_TamperedToken(t *testing.T) {
	svc := newTestService(t, time.Now())
	tok, err := svc.Issue("a@x.com", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)

	tamperedPayload := strings.Join([]string{parts[0], flipChar(parts[1], len(parts[1])/2), parts[2]}, ".")
	_, err = svc.Verify(tamperedPayload)
	require.ErrorIs(t, err, ErrInvalidToken)

	tamperedSignature := strings.Join([]string{parts[0], parts[1], flipChar(parts[2], 3)}, ".")
	_, err = svc.Verify(tamperedSignature)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	svc := newTestService(t, time.Now())
	claims := jwt.RegisteredClaims{
		Subject:   "a@x.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	require.NoError(t, err)
	_, err = svc.Verify(hs512)
	require.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Verify(none)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RequiresExpiry(t *testing.T) {
	svc := newTestService(t, time.Now())
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "a@x.com"}).SignedString(testSecret)
	require.NoError(t, err)

	_, err = svc.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	svc := newTestService(t, time.Now())
	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		_, err := svc.Verify(tok)
		require.ErrorIs(t, err, ErrInvalidToken, "token %q", tok)
	}
}
