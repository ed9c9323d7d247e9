package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.Server.GRPCAddr)
	assert.Equal(t, "tur+eng", cfg.OCR.Lang)
	assert.Equal(t, 0.6, cfg.Normalize.PatternAccept)
	assert.Equal(t, 72, cfg.Normalize.FuzzyBaseScore)
	assert.Equal(t, int64(1), cfg.ShelfLife.DefaultStorageID)
	assert.Equal(t, 8, cfg.Recipe.MaxMissing)
	assert.Equal(t, 4, cfg.Queue.Workers)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PANTRY_SERVER_GRPC_ADDR", ":9090")
	t.Setenv("PANTRY_OCR_ENGINE", "gosseract")
	t.Setenv("PANTRY_QUEUE_WORKERS", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.GRPCAddr)
	assert.Equal(t, "gosseract", cfg.OCR.Engine)
	assert.Equal(t, 2, cfg.Queue.Workers)
}

func TestConfigValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := LoadConfig()
	require.NoError(t, err)

	t.Run("unknown driver", func(t *testing.T) {
		cfg := *base
		cfg.Database.Driver = "mysql"
		err := cfg.Validate()
		require.Error(t, err)

		var appErr *AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "CONFIG_ERROR", appErr.Code)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("min conns above max", func(t *testing.T) {
		cfg := *base
		cfg.Database.MinConns = 50
		cfg.Database.MaxConns = 10
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
	})

	t.Run("accept threshold out of range", func(t *testing.T) {
		cfg := *base
		cfg.Normalize.PatternAccept = 1.5
		assert.Error(t, cfg.Validate())
	})
}

func TestToStatusMapping(t *testing.T) {
	assert.Nil(t, ToStatus(nil))
	assert.Contains(t, ToStatus(WrapError(ErrImageDecode, "decode")).Error(), "FailedPrecondition")
	assert.Contains(t, ToStatus(ErrNotFound).Error(), "NotFound")
	assert.Contains(t, ToStatus(WrapError(ErrTransientStorage, "insert")).Error(), "Unavailable")
}
