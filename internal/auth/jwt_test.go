package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue(42, "student@school.com", "student", "campus-events", "test-key", time.Minute, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := Parse(pair.AccessToken, "test-key", "campus-events")
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID())
	assert.Equal(t, "student@school.com", claims.Email)
	assert.Equal(t, "student", claims.Role)
}

func TestParse_WrongKey(t *testing.T) {
	pair, err := Issue(1, "a@school.com", "admin", "campus-events", "key-one", time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, "key-two", "campus-events")
	assert.Error(t, err)
}

func TestParse_IssuerMismatch(t *testing.T) {
	pair, err := Issue(1, "a@school.com", "admin", "other-issuer", "test-key", time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, "test-key", "campus-events")
	assert.Error(t, err)
}

func TestParse_Expired(t *testing.T) {
	pair, err := Issue(1, "a@school.com", "admin", "campus-events", "test-key", -time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, "test-key", "campus-events")
	assert.Error(t, err)
}
