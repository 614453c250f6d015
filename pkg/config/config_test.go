package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg, err := fromViper(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, "admin_token", cfg.Auth.CookieName)
	assert.Equal(t, 2, cfg.Feeds.Workers)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperRejectsRefreshShorterThanAccess(t *testing.T) {
	v := newTestViper()
	v.Set("ACCESS_TOKEN_TTL", "2h")
	v.Set("REFRESH_TOKEN_TTL", "1h")

	_, err := fromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REFRESH_TOKEN_TTL")
}

func TestFromViperRequiresSecretInProduction(t *testing.T) {
	v := newTestViper()
	v.Set("ENV", EnvProduction)

	_, err := fromViper(v)
	require.Error(t, err)

	v.Set("AUTH_TOKEN_SECRET", "a-real-secret")
	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, EnvProduction, cfg.Env)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("bogus", time.Minute))
	assert.Equal(t, 90*time.Second, parseDuration("90s", time.Minute))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitAndTrim(" http://a , ,http://b"))
	assert.Nil(t, splitAndTrim(""))
}
