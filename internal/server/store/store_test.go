package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateUser("alice", "secret-pass"))

	assert.NoError(t, s.Authenticate("alice", "secret-pass"))
	assert.ErrorIs(t, s.Authenticate("alice", "wrong-pass"), ErrInvalidCredentials)
	assert.ErrorIs(t, s.Authenticate("nobody", "secret-pass"), ErrInvalidCredentials)
}

func TestCreateUserValidation(t *testing.T) {
	s := newTestStore(t)

	assert.Error(t, s.CreateUser("ab", "secret-pass"), "帳號太短")
	assert.Error(t, s.CreateUser("alice", "12345"), "密碼太短")

	require.NoError(t, s.CreateUser("alice", "secret-pass"))
	assert.ErrorIs(t, s.CreateUser("alice", "other-pass"), ErrUsernameTaken)
}

func TestProfileAndResults(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateUser("alice", "secret-pass"))

	profile, err := s.GetProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Zero(t, profile.GamesPlayed)

	require.NoError(t, s.RecordResult("alice", true))
	require.NoError(t, s.RecordResult("alice", false))
	require.NoError(t, s.RecordResult("alice", true))

	profile, err = s.GetProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, 3, profile.GamesPlayed)
	assert.Equal(t, 2, profile.GamesWon)

	_, err = s.GetProfile("nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
