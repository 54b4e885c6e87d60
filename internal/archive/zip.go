// Package archive packages run output as a flat zip file.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"time"
)

// Entry is one file in the archive.
type Entry struct {
	Name string
	Data []byte
}

// Zip returns the archive bytes.
func Zip(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteZip(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteZip writes entries in order, deflated, without directories.
func WriteZip(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	now := time.Now()

	for _, e := range entries {
		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			return fmt.Errorf("zip %s: %w", e.Name, err)
		}
		if _, err := f.Write(e.Data); err != nil {
			return fmt.Errorf("zip %s: %w", e.Name, err)
		}
	}
	return zw.Close()
}
