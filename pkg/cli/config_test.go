package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserConfig_ActiveProfile(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {
				Source: "duckdb:/data/wiki.duckdb",
				Table:  "wikiticker",
				Output: "table",
			},
			"warehouse": {
				Source: "postgres://olap@warehouse/analytics",
				Schema: "facts",
				Output: "json",
			},
		},
	}

	tests := []struct {
		name       string
		override   string
		wantSource string
		wantErr    string
	}{
		{
			name:       "uses current profile",
			override:   "",
			wantSource: "duckdb:/data/wiki.duckdb",
		},
		{
			name:       "override to warehouse",
			override:   "warehouse",
			wantSource: "postgres://olap@warehouse/analytics",
		},
		{
			name:     "nonexistent profile",
			override: "nonexistent",
			wantErr:  `profile "nonexistent" not found`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := cfg.ActiveProfile(tt.override)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, p.Source)
		})
	}
}

func TestUserConfig_ActiveProfile_MissingCurrent(t *testing.T) {
	cfg := &UserConfig{CurrentProfile: "gone", Profiles: map[string]Profile{}}

	p, err := cfg.ActiveProfile("")
	require.NoError(t, err)
	assert.Equal(t, Profile{}, p)
}

func TestLoadSaveUserConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	cfg := &UserConfig{
		CurrentProfile: "test",
		Profiles: map[string]Profile{
			"test": {
				Source:   "sqlite:/tmp/wiki.sqlite",
				Table:    "wikiticker",
				Cube:     "Edits",
				LogLevel: "debug",
			},
		},
	}
	require.NoError(t, SaveUserConfig(cfg))

	configPath := filepath.Join(dir, ".duckolap", "config.yaml")
	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "test", loaded.CurrentProfile)
	require.Contains(t, loaded.Profiles, "test")
	assert.Equal(t, cfg.Profiles["test"], loaded.Profiles["test"])
}

func TestLoadUserConfig_NotFound(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	_, err := LoadUserConfig()
	require.Error(t, err)
}

func TestLoadUserConfig_NoProfiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".duckolap"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".duckolap", "config.yaml"), []byte("current-profile: x\n"), 0o600))

	loaded, err := LoadUserConfig()
	require.NoError(t, err)
	assert.NotNil(t, loaded.Profiles)
}
