package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secureshare/internal/model"
)

func sessionPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "nested", "session.json")
}

func mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return signed
}

func TestEstablishPersistsAcrossLoads(t *testing.T) {
	path := sessionPath(t)
	cred := mint(t, jwt.MapClaims{"userId": "u1", "roles": []string{"admin"}})

	s := Load(path)
	assert.False(t, s.Active())
	require.NoError(t, s.Establish(cred, model.Profile{ID: "u1", Email: "a@x"}))

	// File must not be world readable.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded := Load(path)
	assert.True(t, reloaded.Active())
	assert.Equal(t, cred, reloaded.Credential())
	assert.Equal(t, "a@x", reloaded.Profile().Email)
}

func TestIdentityRedecodesCredential(t *testing.T) {
	path := sessionPath(t)
	s := Load(path)

	require.NoError(t, s.Establish(mint(t, jwt.MapClaims{"userId": "u1"}), model.Profile{ID: "u1"}))
	assert.Equal(t, "u1", s.Identity().ID)

	// Swapping the credential swaps the identity with no caching between.
	require.NoError(t, s.Establish(mint(t, jwt.MapClaims{"userId": "u2", "roles": []string{"admin"}}), model.Profile{ID: "u2"}))
	id := s.Identity()
	assert.Equal(t, "u2", id.ID)
	assert.True(t, id.HasRole(model.RoleAdmin))
}

func TestIdentityOnGarbageCredential(t *testing.T) {
	s := Load(sessionPath(t))
	require.NoError(t, s.Establish("not-a-token", model.Profile{}))
	assert.True(t, s.Identity().IsZero())
}

func TestLogoutClearsEverythingAndNotifies(t *testing.T) {
	path := sessionPath(t)
	s := Load(path)
	require.NoError(t, s.Establish(mint(t, jwt.MapClaims{"userId": "u1"}), model.Profile{ID: "u1"}))

	notified := 0
	s.OnLogout(func() { notified++ })

	require.NoError(t, s.Logout())

	assert.False(t, s.Active())
	assert.Empty(t, s.Credential())
	assert.Equal(t, model.Profile{}, s.Profile())
	assert.True(t, s.Identity().IsZero())
	assert.Equal(t, 1, notified)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Logging out twice is harmless.
	require.NoError(t, s.Logout())
	assert.Equal(t, 2, notified)
}

func TestLoadIgnoresCorruptFile(t *testing.T) {
	path := sessionPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := Load(path)
	assert.False(t, s.Active())
}
