// Package storage keeps uploaded datasets and cleaned outputs on the local
// filesystem. Paths handed out are relative to the root.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	uploadDir  = "datasets"
	cleanedDir = "cleaned"
)

var ErrOutsideRoot = errors.New("path escapes storage root")

type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{uploadDir, cleanedDir} {
		if err := os.MkdirAll(filepath.Join(abs, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Local{root: abs}, nil
}

func (l *Local) Root() string { return l.root }

func (l *Local) resolve(name string) (string, error) {
	full := filepath.Join(l.root, filepath.FromSlash(name))
	rel, err := filepath.Rel(l.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, name)
	}
	return full, nil
}

// SaveUpload stores r under the upload directory and returns its name. The
// original base name is kept behind a short unique prefix.
func (l *Local) SaveUpload(filename string, r io.Reader) (string, error) {
	base := filepath.Base(filepath.Clean("/" + filename))
	name := filepath.ToSlash(filepath.Join(uploadDir, uuid.NewString()[:8]+"_"+base))

	w, err := l.Create(name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return name, nil
}

func (l *Local) Open(name string) (io.ReadCloser, error) {
	full, err := l.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

func (l *Local) Create(name string) (io.WriteCloser, error) {
	full, err := l.resolve(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}
	return os.Create(full)
}

// CleanedName is where the cleaned copy of name is written.
func (l *Local) CleanedName(name string) string {
	return CleanedName(name)
}

func CleanedName(name string) string {
	return cleanedDir + "/cleaned_" + filepath.Base(filepath.FromSlash(name))
}
