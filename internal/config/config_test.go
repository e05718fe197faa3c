package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("SESSION_KEY", "")
	t.Setenv("APP_ENV", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 40.0, cfg.Threshold)
	assert.Equal(t, 5.0, cfg.DeliveryFee)
	assert.Equal(t, 3*time.Second, cfg.GeoTimeout)
	assert.Equal(t, "dev-insecure", cfg.SessionKey)
	assert.Contains(t, cfg.DSN, "host=db")
	assert.Contains(t, cfg.Capitals, "Tbilisi")
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
free_delivery_threshold: 60
geo_timeout: 1500ms
capitals: ["Batumi"]
currency: USD
`), 0o600))

	t.Setenv("DELIVERY_FEE", "7.5")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SESSION_KEY", "2f9c0d7e")
	t.Setenv("PORT", "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 60.0, cfg.Threshold)
	assert.Equal(t, 7.5, cfg.DeliveryFee)
	assert.Equal(t, 1500*time.Millisecond, cfg.GeoTimeout)
	assert.Equal(t, []string{"Batumi"}, cfg.Capitals)
	assert.Equal(t, "USD", cfg.Currency)
	assert.True(t, cfg.SecureCookies)
	assert.Equal(t, "2f9c0d7e", cfg.SessionKey)

	t.Setenv("CAPITAL_CITY", "Tbilisi,თბილისი")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tbilisi", "თბილისი"}, cfg.Capitals)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("APP_ENV", "")
	_, err := Load(filepath.Join(t.TempDir(), "no-existe.yaml"))
	assert.Error(t, err)

	t.Setenv("FREE_DELIVERY_THRESHOLD", "mucho")
	_, err = Load("")
	assert.ErrorContains(t, err, "FREE_DELIVERY_THRESHOLD")
}

func TestLoad_ProductionNeedsSessionKey(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_KEY", "")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrMissingSessionKey)

	t.Setenv("SESSION_KEY", DevSessionKey)
	_, err = Load("")
	assert.ErrorIs(t, err, ErrMissingSessionKey, "la clave de desarrollo no sirve en producción")

	t.Setenv("APP_ENV", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DevSessionKey, cfg.SessionKey)
}
