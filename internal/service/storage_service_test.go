package service

import (
	"academy_backend/internal/config"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_PutAndDelete(t *testing.T) {
	root := t.TempDir()
	storage := NewStorageService(&config.StorageConfig{Type: "local", LocalPath: root})
	ctx := context.Background()

	url, err := storage.PutBytes(ctx, "certificates/2026/CERT-2026-001001.html", []byte("<html></html>"), "text/html")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/certificates/2026/CERT-2026-001001.html", url)

	path := filepath.Join(root, "certificates", "2026", "CERT-2026-001001.html")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))

	require.NoError(t, storage.Delete(ctx, "certificates/2026/CERT-2026-001001.html"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestNewStorageService_UnknownTypeFallsBackToLocal(t *testing.T) {
	storage := NewStorageService(&config.StorageConfig{Type: "ftp", LocalPath: t.TempDir()})
	_, ok := storage.Provider.(*LocalStorageProvider)
	assert.True(t, ok)
}
