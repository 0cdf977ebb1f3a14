package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raids-lab/teamspace/dao/model"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := newTokenManager("test-secret", 1, 168)

	msg := &JWTMessage{UserID: 42, Username: "alice", RolePlatform: model.RoleAdmin}
	access, refresh, err := tm.CreateTokens(msg)
	require.NoError(t, err)
	assert.NotEqual(t, access, refresh)

	parsed, err := tm.CheckToken(access)
	require.NoError(t, err)
	assert.Equal(t, *msg, parsed)

	parsed, err = tm.CheckToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, *msg, parsed)
}

func TestCheckTokenRejectsWrongSecret(t *testing.T) {
	tm := newTokenManager("test-secret", 1, 168)
	other := newTokenManager("other-secret", 1, 168)

	access, _, err := tm.CreateTokens(&JWTMessage{UserID: 1, Username: "bob", RolePlatform: model.RoleMember})
	require.NoError(t, err)

	_, err = other.CheckToken(access)
	assert.Error(t, err)
}

func TestCheckTokenRejectsGarbage(t *testing.T) {
	tm := newTokenManager("test-secret", 1, 168)
	_, err := tm.CheckToken("not-a-token")
	assert.Error(t, err)
}
