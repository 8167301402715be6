package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAPIKey(t *testing.T) {
	p := &Profile{UserID: 1}

	rawKey, err := p.IssueAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rawKey, "hxg_"))
	assert.Equal(t, rawKey[:12], p.APIKeyPrefix)
	assert.Equal(t, HashAPIKey(rawKey), p.APIKeyHash)
	assert.NotNil(t, p.APIKeyCreatedAt)
	assert.Nil(t, p.APIKeyRevokedAt)
	assert.True(t, p.HasActiveAPIKey())

	// reissuing replaces the previous key
	secondKey, err := p.IssueAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, rawKey, secondKey)
	assert.Equal(t, HashAPIKey(secondKey), p.APIKeyHash)
}

func TestRevokeAPIKey(t *testing.T) {
	p := &Profile{UserID: 1}
	_, err := p.IssueAPIKey()
	require.NoError(t, err)

	p.RevokeAPIKey()

	assert.Empty(t, p.APIKeyHash)
	assert.Empty(t, p.APIKeyPrefix)
	assert.NotNil(t, p.APIKeyRevokedAt)
	assert.False(t, p.HasActiveAPIKey())
}

func TestHashAPIKey(t *testing.T) {
	hash := HashAPIKey("hxg_testkey")

	assert.Len(t, hash, 64)
	// trailing whitespace from header parsing must not change the lookup hash
	assert.Equal(t, hash, HashAPIKey(" hxg_testkey \n"))
	assert.NotEqual(t, hash, HashAPIKey("hxg_otherkey"))
}

func TestIsPro(t *testing.T) {
	assert.False(t, (&Profile{Plan: PlanFree}).IsPro())
	assert.True(t, (&Profile{Plan: PlanPro}).IsPro())
	assert.True(t, (&Profile{Plan: "pro"}).IsPro())
	assert.False(t, (&Profile{Plan: ""}).IsPro())
}

func TestHasActiveAPIKeyNilProfile(t *testing.T) {
	var p *Profile
	assert.False(t, p.HasActiveAPIKey())
}
