package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-evolver/internal/apperrors"
	"query-evolver/internal/config"
	"query-evolver/internal/logging"
)

func TestOpenFileStore(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Driver = config.StorageFile
	cfg.Storage.Dir = t.TempDir()

	store, closeFn, err := Open(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	defer closeFn()

	fs, ok := store.(*FileGenerationStore)
	require.True(t, ok)
	assert.Equal(t, cfg.Storage.Dir, fs.Dir())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Driver = "s3"

	_, closeFn, err := Open(context.Background(), cfg, logging.Nop())
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
	assert.NotNil(t, closeFn)
}
