package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)

	user, err := users.Register("mina", "Mina@Example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "mina@example.com", user.Email)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	found, err := users.Authenticate("mina@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = users.Authenticate("mina@example.com", "wrong")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = users.Register("other", "mina@example.com", "another pass")
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = users.Register("short", "short@example.com", "tiny")
	assert.ErrorIs(t, err, ErrValidation)
}
