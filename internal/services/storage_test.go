package services

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileHeader builds a multipart header the way an HTTP upload would.
func fileHeader(t *testing.T, name, content string) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	require.Len(t, form.File["file"], 1)
	return form.File["file"][0]
}

func TestStorageService_StagesAndDeletes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	storage := NewStorageService(dir)
	require.NoError(t, storage.EnsureUploadDir())

	name, path, err := storage.SaveFile(fileHeader(t, "Clients.CSV", "user_id\nu1\n"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(name, "batch_"))
	assert.True(t, strings.HasSuffix(name, ".csv"))
	assert.Equal(t, filepath.Join(dir, name), path)

	f, err := storage.Open(name)
	require.NoError(t, err)
	data, err := os.ReadFile(f.Name())
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, "user_id\nu1\n", string(data))

	require.NoError(t, storage.DeleteFile(name))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Error(t, storage.DeleteFile(name))
}

func TestStorageService_RejectsUnsupportedFiles(t *testing.T) {
	storage := NewStorageService(t.TempDir())

	_, _, err := storage.SaveFile(fileHeader(t, "notes.pdf", "%PDF"))
	assert.True(t, IsValidation(err))

	_, _, err = storage.SaveFile(nil)
	assert.True(t, IsValidation(err))
}

func TestStorageService_PathStaysInUploadDir(t *testing.T) {
	storage := NewStorageService("/srv/uploads")
	assert.Equal(t, "/srv/uploads/passwd", storage.GetFilePath("../../etc/passwd"))
}
