package storage_test

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"data-quality-service/internal/storage"
)

func TestLocal_SaveUploadAndOpen(t *testing.T) {
	root := t.TempDir()
	l, err := storage.NewLocal(root)
	require.NoError(t, err)

	name, err := l.SaveUpload("../../etc/people.csv", strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "datasets/"), name)
	assert.True(t, strings.HasSuffix(name, "_people.csv"), name)

	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(name)))
	require.NoError(t, err)

	f, err := l.Open(name)
	require.NoError(t, err)
	defer f.Close()
	b, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(b))
}

func TestLocal_CreateCleaned(t *testing.T) {
	l, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	name := l.CleanedName("datasets/1a2b3c4d_people.xlsx")
	assert.Equal(t, "cleaned/cleaned_1a2b3c4d_people.xlsx", name)

	w, err := l.Create(name)
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := l.Open(name)
	require.NoError(t, err)
	f.Close()
}

func TestLocal_RejectsPathsOutsideRoot(t *testing.T) {
	l, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = l.Open("../secret.csv")
	assert.ErrorIs(t, err, storage.ErrOutsideRoot)

	_, err = l.Create("cleaned/../../x.csv")
	assert.ErrorIs(t, err, storage.ErrOutsideRoot)
}
