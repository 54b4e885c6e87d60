package ports

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by GetObject and DeleteObject for unknown keys.
var ErrObjectNotFound = errors.New("object not found")

type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutObjectOutput struct {
	// En localfs es el mismo object_key.
	// En gdrive es el fileId real; es lo que hay que guardar para leer después.
	ObjectKey string
	Size      int64
}

// StorageProvider guarda las entradas de cada run (tabla o imágenes subidas)
// y el zip final. Implementaciones: localfs, gdrive.
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
	DeleteObject(ctx context.Context, objectKey string) error
}
