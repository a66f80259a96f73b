package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalFileStorage_SaveAndRead(t *testing.T) {
	ctx := context.Background()
	tempDir := t.TempDir()
	fs := NewLocalFileStorage(tempDir, zap.NewNop())

	t.Run("saves into nested directories", func(t *testing.T) {
		err := fs.Save(ctx, "2025/06/ranking.xlsx", []byte("workbook"))
		require.NoError(t, err)

		full := filepath.Join(tempDir, "2025", "06", "ranking.xlsx")
		assert.FileExists(t, full)
		assert.Equal(t, full, fs.GetFullPath("2025/06/ranking.xlsx"))
		assert.True(t, fs.Exists(ctx, "2025/06/ranking.xlsx"))

		content, err := fs.Read(ctx, "2025/06/ranking.xlsx")
		require.NoError(t, err)
		assert.Equal(t, []byte("workbook"), content)
	})

	t.Run("overwrites existing report", func(t *testing.T) {
		require.NoError(t, fs.Save(ctx, "ranking.xlsx", []byte("v1")))
		require.NoError(t, fs.Save(ctx, "ranking.xlsx", []byte("v2")))

		content, err := fs.Read(ctx, "ranking.xlsx")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), content)
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		entries, err := os.ReadDir(tempDir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".report-")
		}
	})
}

func TestLocalFileStorage_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	fs := NewLocalFileStorage(t.TempDir(), zap.NewNop())

	tests := []string{"../escape.xlsx", "a/../../escape.xlsx", "."}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			assert.Error(t, fs.Save(ctx, path, []byte("x")))
			_, err := fs.Read(ctx, path)
			assert.Error(t, err)
			assert.False(t, fs.Exists(ctx, path))
		})
	}
}

func TestLocalFileStorage_ReadMissing(t *testing.T) {
	fs := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	_, err := fs.Read(context.Background(), "missing.xlsx")
	assert.Error(t, err)
	assert.False(t, fs.Exists(context.Background(), "missing.xlsx"))
}
