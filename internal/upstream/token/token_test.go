package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	m := NewManager("secret", time.Hour)

	signed, err := m.Issue("user-42")
	require.NoError(t, err)

	userID, err := m.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestParse_RejectsWrongSecret(t *testing.T) {
	signed, err := NewManager("secret-a", time.Hour).Issue("user-42")
	require.NoError(t, err)

	_, err = NewManager("secret-b", time.Hour).Parse(signed)
	assert.Error(t, err)
}

func TestParse_RejectsExpired(t *testing.T) {
	signed, err := NewManager("secret", -time.Minute).Issue("user-42")
	require.NoError(t, err)

	_, err = NewManager("secret", time.Hour).Parse(signed)
	assert.Error(t, err)
}

func TestParse_RejectsGarbage(t *testing.T) {
	_, err := NewManager("secret", time.Hour).Parse("not-a-token")
	assert.Error(t, err)
}
