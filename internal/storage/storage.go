// Package storage uploads proof photos to a bucket and builds their public
// URLs. Disk and Cloudinary backends are available.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

const ProofPhotos = "proof_photos"

var (
	ErrExists      = errors.New("object already exists")
	ErrInvalidName = errors.New("invalid object name")
)

type Bucket interface {
	// Upload stores r as name in bucket and returns the stored path. Without
	// overwrite an existing object is an ErrExists.
	Upload(ctx context.Context, bucket, name string, r io.Reader, overwrite bool) (string, error)
	PublicURL(bucket, objectPath string) string
}

// PhotoName prefixes the client file name with a random id so uploads never
// collide: "<uuid>-<name>".
func PhotoName(original string) string {
	base := path.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, base)
	for strings.Contains(base, "..") {
		base = strings.ReplaceAll(base, "..", ".")
	}
	if base == "" || base == "." || base == ".." {
		base = "photo"
	}
	return uuid.NewString() + "-" + base
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, "/\\") && !strings.Contains(name, "..")
}
