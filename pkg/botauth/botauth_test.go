package botauth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	a := New("primary-key", "")

	tok, err := a.Issue("operator")
	require.NoError(t, err)

	claims, err := a.Verify("Bearer " + tok)
	require.NoError(t, err)
	require.Equal(t, "operator", claims.Subject)
	require.Equal(t, Issuer, claims.Issuer)
}

func TestVerifyIsCaseInsensitiveOnBearerPrefix(t *testing.T) {
	a := New("primary-key", "")

	tok, err := a.Issue("operator")
	require.NoError(t, err)

	_, err = a.Verify("bearer " + tok)
	require.NoError(t, err)
}

func TestVerifyRejectsMissingBearerPrefix(t *testing.T) {
	a := New("primary-key", "")

	tok, err := a.Issue("operator")
	require.NoError(t, err)

	_, err = a.Verify(tok)
	require.Error(t, err)
}

func TestVerifyFallsBackToSecondaryKey(t *testing.T) {
	issuer := New("old-key", "")

	tok, err := issuer.Issue("operator")
	require.NoError(t, err)

	verifier := New("new-key", "old-key")

	claims, err := verifier.Verify("Bearer " + tok)
	require.NoError(t, err)
	require.Equal(t, "operator", claims.Subject)
}

func TestVerifyRejectsWrongKeys(t *testing.T) {
	issuer := New("old-key", "")

	tok, err := issuer.Issue("operator")
	require.NoError(t, err)

	verifier := New("new-key", "another-key")

	_, err = verifier.Verify("Bearer " + tok)
	require.Error(t, err)
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	a := New("primary-key", "")

	_, err := a.Verify("Bearer not-a-jwt")
	require.Error(t, err)
}
