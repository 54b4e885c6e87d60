package storage

import (
	"context"
	"fmt"
	"io"

	"lienzo/internal/ports"
)

// Provider is the storage contract used across API, worker and CLI.
// It is an alias to ports.StorageProvider to keep call-sites simple.
type Provider = ports.StorageProvider

// Pinger is implemented by providers that can check their backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadObject reads a whole object, refusing anything larger than max bytes.
func ReadObject(ctx context.Context, sp Provider, objectKey string, max int64) ([]byte, error) {
	rc, _, _, err := sp.GetObject(ctx, objectKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, max+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", objectKey, err)
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("read %s: object exceeds %d bytes", objectKey, max)
	}
	return data, nil
}
