package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccountIdentifier(t *testing.T) {
	driver, err := NewAccount(RoleDriver, "王大明", "0912345678", "123456")
	require.NoError(t, err)
	assert.Equal(t, "0912345678", driver.Phone)
	assert.Equal(t, "0912345678", driver.Identifier())
	assert.Empty(t, driver.Username)

	admin, err := NewAccount(RoleAdmin, "Admin", "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Username)
	assert.Equal(t, "admin", admin.Identifier())
}

func TestNewAccountValidation(t *testing.T) {
	_, err := NewAccount("root", "x", "y", "z")
	assert.ErrorIs(t, err, ErrInvalidRole)
	_, err = NewAccount(RoleDriver, " ", "y", "z")
	assert.ErrorIs(t, err, ErrNameRequired)
	_, err = NewAccount(RoleDriver, "x", "", "z")
	assert.ErrorIs(t, err, ErrIdentifierRequired)
	_, err = NewAccount(RoleDriver, "x", "y", "")
	assert.ErrorIs(t, err, ErrEmptyPasswordHash)
}

func TestAuthenticate(t *testing.T) {
	account, err := NewAccount(RolePassenger, "李小華", "0987654321", "123456")
	require.NoError(t, err)

	assert.NoError(t, account.Authenticate("123456"))
	assert.ErrorIs(t, account.Authenticate("654321"), ErrPasswordMismatch)

	account.Status = StatusBanned
	assert.ErrorIs(t, account.Authenticate("123456"), ErrAccountDisabled)
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Driver ")
	require.NoError(t, err)
	assert.True(t, role.IsDriver())

	_, err = ParseRole("root")
	assert.ErrorIs(t, err, ErrInvalidRole)
}
