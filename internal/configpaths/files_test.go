package configpaths_test

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/aircontroller/padbridge/internal/configpaths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix layout")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err := configpaths.DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "padbridge"), dir)
}

func TestConfigCandidatePaths(t *testing.T) {
	type testCase struct {
		userPath string
		json     bool
		yaml     bool
		toml     bool
	}

	cases := []testCase{
		{userPath: "my.yml", yaml: true},
		{userPath: "my.yaml", yaml: true},
		{userPath: "my.toml", toml: true},
		{userPath: "my.json", json: true},
		{userPath: "my.conf", json: true},
	}

	for _, tc := range cases {
		t.Run(tc.userPath, func(t *testing.T) {
			j, y, tm := configpaths.ConfigCandidatePaths(tc.userPath)
			first := func(paths []string) bool { return len(paths) > 0 && paths[0] == tc.userPath }
			assert.Equal(t, tc.json, first(j))
			assert.Equal(t, tc.yaml, first(y))
			assert.Equal(t, tc.toml, first(tm))
		})
	}
}

func TestProfileCandidatePaths(t *testing.T) {
	t.Chdir(t.TempDir())
	paths := configpaths.ProfileCandidatePaths()
	require.NotEmpty(t, paths)
	assert.Equal(t, "profiles.json", filepath.Base(paths[0]))
	for _, p := range paths {
		assert.Contains(t, []string{"profiles.json", "profiles.yaml", "profiles.yml", "profiles.toml"}, filepath.Base(p))
	}
}
