package core

import (
	"context"
	"io"
	"path"
	"strings"
)

type (
	// Upload is a file received from a form, not yet stored.
	Upload struct {
		Filename    string
		Size        int64
		ContentType string
		Open        func() (io.ReadCloser, error)
	}

	// FileStorage stores uploaded files and hands back the key they are referenced by.
	FileStorage interface {
		Save(ctx context.Context, dir string, up *Upload) (string, error)
		URL(key string) string
	}
)

// Ext returns the lowered extension of the uploaded file name.
func (up *Upload) Ext() string {
	return strings.ToLower(path.Ext(up.Filename))
}
