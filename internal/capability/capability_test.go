package capability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsvm/internal/capability"
)

func TestDeniedSetRejectsEverything(t *testing.T) {
	s := capability.Denied()
	assert.Error(t, s.CheckRead("/tmp/x"))
	assert.Error(t, s.CheckWrite("/tmp/x"))
	assert.Error(t, s.CheckNet("example.com"))
	assert.Error(t, s.CheckEnv("HOME"))
	assert.Error(t, s.CheckSubprocess())
	assert.Error(t, s.CheckDynamicCode())
	assert.Error(t, s.CheckHiresTime())
}

func TestAllowAllGrantsEverythingForThatField(t *testing.T) {
	s := capability.Set{ReadPaths: capability.AllowAll()}
	assert.NoError(t, s.CheckRead("/anything/at/all"))
	assert.Error(t, s.CheckWrite("/anything/at/all"), "AllowAll on ReadPaths must not leak into WritePaths")
}

func TestAllowOnlyMatchesExactPath(t *testing.T) {
	s := capability.Set{ReadPaths: capability.AllowOnly("/data/in.json")}
	assert.NoError(t, s.CheckRead("/data/in.json"))
	assert.Error(t, s.CheckRead("/data/other.json"))
}

func TestAllowOnlyMatchesPathPrefix(t *testing.T) {
	s := capability.Set{ReadPaths: capability.AllowOnly("/data")}
	assert.NoError(t, s.CheckRead("/data/nested/file.txt"))
	assert.Error(t, s.CheckRead("/etc/passwd"))
}

func TestNetHostWildcardSuffixMatch(t *testing.T) {
	s := capability.Set{NetHosts: capability.AllowOnly("*.example.com")}
	assert.NoError(t, s.CheckNet("api.example.com"))
	assert.NoError(t, s.CheckNet("sub.api.example.com"))
	assert.Error(t, s.CheckNet("example.com"))
	assert.Error(t, s.CheckNet("evil.com"))
}

func TestNetHostExactMatch(t *testing.T) {
	s := capability.Set{NetHosts: capability.AllowOnly("api.example.com")}
	assert.NoError(t, s.CheckNet("api.example.com"))
	assert.Error(t, s.CheckNet("other.example.com"))
}

func TestEnvNamesRequireExactMatch(t *testing.T) {
	s := capability.Set{EnvNames: capability.AllowOnly("HOME", "PATH")}
	assert.NoError(t, s.CheckEnv("HOME"))
	assert.NoError(t, s.CheckEnv("PATH"))
	assert.Error(t, s.CheckEnv("SECRET_KEY"))
}

func TestBooleanGatesDefaultDenied(t *testing.T) {
	s := capability.Set{}
	require.Error(t, s.CheckSubprocess())
	require.Error(t, s.CheckDynamicCode())
	require.Error(t, s.CheckHiresTime())

	s.SubprocessAllowed = true
	s.DynamicCodeAllowed = true
	s.HiresTimeAllowed = true
	assert.NoError(t, s.CheckSubprocess())
	assert.NoError(t, s.CheckDynamicCode())
	assert.NoError(t, s.CheckHiresTime())
}

func TestDeniedErrorNamesTheCapabilityAndArgument(t *testing.T) {
	s := capability.Denied()
	err := s.CheckNet("blocked.example.com")
	denied, ok := err.(*capability.DeniedError)
	require.True(t, ok)
	assert.Equal(t, "net_hosts", denied.Capability)
	assert.Equal(t, "blocked.example.com", denied.Argument)
	assert.Contains(t, denied.Error(), "net_hosts")
	assert.Contains(t, denied.Error(), "blocked.example.com")
}
