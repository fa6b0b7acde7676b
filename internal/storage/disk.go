package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Disk stores objects under Root/<bucket>/<name> and serves them from
// BaseURL/<bucket>/<name>.
type Disk struct {
	Root    string
	BaseURL string
}

func NewDisk(root, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}
	return &Disk{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (d *Disk) Upload(ctx context.Context, bucket, name string, r io.Reader, overwrite bool) (string, error) {
	if !validName(bucket) || !validName(name) {
		return "", ErrInvalidName
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Join(d.Root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating bucket dir: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(filepath.Join(dir, name), flags, 0o644)
	if errors.Is(err, os.ErrExist) {
		return "", ErrExists
	}
	if err != nil {
		return "", fmt.Errorf("opening object: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing object: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing object: %w", err)
	}
	return name, nil
}

func (d *Disk) PublicURL(bucket, objectPath string) string {
	return d.BaseURL + "/" + bucket + "/" + objectPath
}
