package image

import (
	"context"
	"errors"
	"io"
)

// ErrUpload tags any hosting failure (rejection or unreachable host) so
// callers can abort before persisting documents that reference the image.
var ErrUpload = errors.New("image upload failed")

// File is a user-selected image pending upload.
type File struct {
	Name   string
	Reader io.Reader
}

// Uploader sends a file to the image hosting collaborator and returns the
// public URL it is served from.
type Uploader interface {
	Upload(ctx context.Context, file File, folder string) (string, error)
}
