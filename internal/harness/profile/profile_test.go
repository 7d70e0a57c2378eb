package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProfile = `
server:
  name: testircd
  version: "1.2"
password_required: false
modes: [i, t, k, o]
features:
  - kick
  - invite
  - topic
`

func TestParseProfile(t *testing.T) {
	p, err := Parse([]byte(sampleProfile))
	require.NoError(t, err)

	assert.Equal(t, "testircd", p.Server.Name)
	assert.False(t, p.PasswordRequired)
	assert.Equal(t, []string{"i", "t", "k", "o"}, p.Modes)
}

func TestClaims(t *testing.T) {
	p, err := Parse([]byte(sampleProfile))
	require.NoError(t, err)

	tests := []struct {
		req  string
		want bool
	}{
		{"mode.i", true},
		{"mode.t", true},
		{"mode.l", false},
		{"kick", true},
		{"KICK", true},
		{"invite", true},
		{"multi-target-kick", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, p.Claims(tc.req), "Claims(%q)", tc.req)
	}

	assert.True(t, p.ClaimsAll([]string{"mode.i", "kick"}))
	assert.False(t, p.ClaimsAll([]string{"mode.i", "mode.l"}))
	assert.True(t, p.ClaimsAll(nil))
	assert.Equal(t, []string{"mode.l"}, p.Unmet([]string{"kick", "mode.l"}))
}

func TestDefaultClaimsEverything(t *testing.T) {
	p := Default()
	assert.True(t, p.Claims("mode.z"))
	assert.True(t, p.Claims("anything-at-all"))
	assert.True(t, p.ClaimsAll([]string{"a", "b", "c"}))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "testircd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleProfile), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "testircd", p.Name)
	assert.True(t, p.Claims("mode.k"))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var le *LoadError
	require.ErrorAs(t, err, &le)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("modes: {not a list"), 0o644))
	_, err = Load(bad)
	require.ErrorAs(t, err, &le)
}
