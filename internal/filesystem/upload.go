package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
)

var (
	// ErrTooLarge is returned by SaveUpload when the body exceeds the limit.
	ErrTooLarge = errors.New("upload exceeds size limit")
	// ErrEmptyUpload is returned by SaveUpload when no bytes were received.
	ErrEmptyUpload = errors.New("upload is empty")
)

// Saved describes a file persisted by SaveUpload.
type Saved struct {
	Path      string
	SizeBytes int64
}

// SaveUpload streams r into dir under a collision-free name derived from
// originalName ("<uuid>_<base>"). The file only becomes visible once fully
// written and synced; on any error nothing is left behind. maxBytes <= 0
// disables the size check.
func SaveUpload(dir, originalName string, r io.Reader, maxBytes int64) (Saved, error) {
	path := filepath.Join(dir, uuid.NewString()+"_"+SanitizeName(originalName))

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return Saved{}, fmt.Errorf("create pending upload: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}

	n, err := io.Copy(pending, src)
	if err != nil {
		return Saved{}, fmt.Errorf("write upload: %w", err)
	}
	if maxBytes > 0 && n > maxBytes {
		return Saved{}, ErrTooLarge
	}
	if n == 0 {
		return Saved{}, ErrEmptyUpload
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return Saved{}, fmt.Errorf("commit upload: %w", err)
	}

	return Saved{Path: path, SizeBytes: n}, nil
}

// SanitizeName reduces a client supplied file name to a safe base name.
// Directory components are dropped and characters outside a conservative
// set are replaced with '_'. The extension is preserved.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" {
		return "upload"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	clean := strings.TrimLeft(b.String(), ".")
	if clean == "" {
		return "upload"
	}
	return clean
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// EnsureDir creates dir (and parents) if needed.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
