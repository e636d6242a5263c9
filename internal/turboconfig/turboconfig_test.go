package turboconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIURL_DefaultsWhenUnset(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	assert.Equal(t, DefaultAPIURL, APIURL())
}

func TestAPIURL_HonoursEnv(t *testing.T) {
	t.Setenv(EnvAPIURL, "https://turbo.example.com/api/v1")
	assert.Equal(t, "https://turbo.example.com/api/v1", APIURL())
}

func TestParseAllowedIDs(t *testing.T) {
	assert.Nil(t, ParseAllowedIDs(""))
	assert.Nil(t, ParseAllowedIDs("   "))
	assert.Equal(t, []string{"p1", "p2"}, ParseAllowedIDs("p1,p2"))
	assert.Equal(t, []string{"p1", "p2"}, ParseAllowedIDs(" p1 , p2 "))
	assert.Equal(t, []string{"p1"}, ParseAllowedIDs("p1,,"))
}

func TestAllowedProjectIDs_RereadsEachCall(t *testing.T) {
	t.Setenv(EnvAllowedIDs, "p1")
	assert.Equal(t, []string{"p1"}, AllowedProjectIDs())

	t.Setenv(EnvAllowedIDs, "p1,p2")
	assert.Equal(t, []string{"p1", "p2"}, AllowedProjectIDs())
}

func TestRateLimit_DefaultsAndParses(t *testing.T) {
	t.Setenv(EnvRateLimit, "")
	assert.Equal(t, DefaultRateLimit, RateLimit())

	t.Setenv(EnvRateLimit, "50")
	assert.Equal(t, 50, RateLimit())

	t.Setenv(EnvRateLimit, "not-a-number")
	assert.Equal(t, DefaultRateLimit, RateLimit())

	t.Setenv(EnvRateLimit, "-5")
	assert.Equal(t, DefaultRateLimit, RateLimit())
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", MaskKey(""))
	assert.Equal(t, "****", MaskKey("abcd"))
	assert.Equal(t, "****7890", MaskKey("sk-ant-1234567890"))
}

func TestLogger_WritesToDataDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	l := Logger()
	l.Info().Msg("hello")

	dir, err := DataDir()
	assert.NoError(t, err)
	assert.FileExists(t, dir+"/agent.log")
}
