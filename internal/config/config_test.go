package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		v := viper.New()
		v.Set("jwt.secret_key", "test-secret")

		cfg, err := LoadFrom(v)
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "SAL", cfg.Billing.InvoicePrefix)
		assert.Equal(t, 1800, cfg.Billing.TaxRateBps)
		assert.True(t, cfg.Billing.AutoProvisionSequences)
		assert.Equal(t, "Asia/Kolkata", cfg.Billing.Location().String())
		assert.Contains(t, cfg.CashDrawer.Denominations, int64(50000))
		assert.Equal(t, "host=localhost port=5432 user=postgres password=password dbname=salon_pos sslmode=disable", cfg.Database.DSN())
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	})

	t.Run("missing jwt secret", func(t *testing.T) {
		v := viper.New()
		v.Set("jwt.secret_key", "")

		_, err := LoadFrom(v)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET_KEY")
	})

	t.Run("tax rate out of range", func(t *testing.T) {
		v := viper.New()
		v.Set("jwt.secret_key", "test-secret")
		v.Set("billing.tax_rate_bps", 12000)

		_, err := LoadFrom(v)
		assert.Error(t, err)
	})

	t.Run("bad denomination list", func(t *testing.T) {
		v := viper.New()
		v.Set("jwt.secret_key", "test-secret")
		v.Set("cash_drawer.denominations", "100,abc")

		_, err := LoadFrom(v)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "abc")
	})
}

func TestDatabaseConfig_URL(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5433", User: "u", Password: "p", Name: "salon", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5433/salon?sslmode=disable", c.URL())
}

func TestLoadFrom_FiscalYearStart(t *testing.T) {
	v := viper.New()
	v.Set("jwt.secret_key", "test-secret")
	v.Set("billing.fiscal_year_start", 13)

	_, err := LoadFrom(v)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "FISCAL_YEAR_START_MONTH")
}
