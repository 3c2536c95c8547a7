package media_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamber/internal/media"
	"github.com/chamber/internal/model"
)

func TestDiskStore(t *testing.T) {
	dir := t.TempDir()
	store, err := media.NewDiskStore(dir)
	require.NoError(t, err)

	data := []byte("payload")
	rel, err := store.Save(context.Background(), model.MessageTypeImage, "pic.png", data)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("images", "pic.png"), rel)

	written, err := os.ReadFile(filepath.Join(dir, rel))
	require.NoError(t, err)
	assert.Equal(t, data, written)

	path, err := store.Open("images", "pic.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "images", "pic.png"), path)

	_, err = store.Open("images", "missing.png")
	assert.Error(t, err)
	_, err = store.Open("secrets", "pic.png")
	assert.Error(t, err)

	// Path traversal collapses to the base name.
	_, err = store.Open("images", "../../pic.png")
	require.NoError(t, err)
}
