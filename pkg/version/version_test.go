package version

import (
	"encoding/json"
	"regexp"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_FollowsSemverOrDev(t *testing.T) {
	// Given: the version package is imported
	// When: accessing Version
	// Then: it is "dev" or a semver string injected by ldflags
	if Version == "dev" {
		return
	}
	semver := regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`)
	require.True(t, semver.MatchString(Version), "got %s", Version)
}

func TestString_ContainsBuildFields(t *testing.T) {
	// Given: overridden build fields
	oldV, oldC, oldD := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = oldV, oldC, oldD })
	Version, Commit, Date = "1.2.3", "abc1234", "2026-01-02T03:04:05Z"

	// When: formatting
	s := String()

	// Then: every field appears
	assert.Equal(t, "hvsearch 1.2.3 (commit: abc1234, built: 2026-01-02T03:04:05Z, go: "+GoVersion+")", s)
	assert.Equal(t, "1.2.3", Short())
}

func TestGetInfo_MarshalsPlatform(t *testing.T) {
	// Given: the runtime platform
	// When: marshaling build info
	data, err := json.Marshal(GetInfo())
	require.NoError(t, err)

	// Then: os and arch come from the runtime
	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, runtime.GOOS, got["os"])
	assert.Equal(t, runtime.GOARCH, got["arch"])
	assert.Equal(t, Version, got["version"])
}
