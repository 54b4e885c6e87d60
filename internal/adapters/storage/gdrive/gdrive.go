package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"lienzo/internal/ports"
)

// Client implements ports.StorageProvider backed by Google Drive.
// The Drive fileId is the object key returned by PutObject; the requested
// key is flattened into the file name, e.g. "runs_<id>_inputs_table.xlsx".
type Client struct {
	srv      *drive.Service
	folderID string
}

func NewClient(srv *drive.Service, folderID string) *Client {
	return &Client{srv: srv, folderID: folderID}
}

func (c *Client) Provider() string { return "gdrive" }

func (c *Client) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	if in.ObjectKey == "" {
		return ports.PutObjectOutput{}, fmt.Errorf("object_key is required")
	}

	file := &drive.File{
		Name:       fileName(in.ObjectKey),
		Properties: map[string]string{"lienzo_key": in.ObjectKey},
	}
	if c.folderID != "" {
		file.Parents = []string{c.folderID}
	}

	call := c.srv.Files.Create(file).SupportsAllDrives(true).Fields("id", "size")
	if in.ContentType != "" {
		call = call.Media(in.Reader, googleapi.ContentType(in.ContentType))
	} else {
		call = call.Media(in.Reader)
	}

	created, err := call.Context(ctx).Do()
	if err != nil {
		return ports.PutObjectOutput{}, fmt.Errorf("gdrive upload failed: %w", err)
	}

	size := in.Size
	if created.Size > 0 {
		size = created.Size
	}
	return ports.PutObjectOutput{ObjectKey: created.Id, Size: size}, nil
}

func (c *Client) GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error) {
	resp, err := c.srv.Files.Get(objectKey).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return nil, "", 0, mapErr(objectKey, err)
	}

	return resp.Body, resp.Header.Get("Content-Type"), resp.ContentLength, nil
}

func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
	err := c.srv.Files.Delete(objectKey).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	return mapErr(objectKey, err)
}

// Ping lists at most one file to check that the credentials still work.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.srv.Files.List().PageSize(1).Fields("files(id)").Context(ctx).Do()
	return err
}

func mapErr(objectKey string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w", objectKey, ports.ErrObjectNotFound)
	}
	return err
}

func fileName(objectKey string) string {
	return strings.ReplaceAll(path.Clean(objectKey), "/", "_")
}
