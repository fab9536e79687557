package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/salonpos/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	t.Run("json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		err := Setup(config.LogConfig{Level: "debug", Format: "json", Output: path})
		require.NoError(t, err)

		l := WithComponent("ledger")
		l.Info().Str("customer_id", "c1").Msg("collection recorded")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"component":"ledger"`)
		assert.Contains(t, string(data), `"customer_id":"c1"`)
		assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	})

	t.Run("invalid level", func(t *testing.T) {
		err := Setup(config.LogConfig{Level: "loud", Output: "stdout"})
		assert.Error(t, err)
	})
}
