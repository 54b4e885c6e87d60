package storage

import (
	"fmt"
	"path"
	"strings"
)

var unsafeName = strings.NewReplacer("/", "_", "\\", "_", " ", "_", "..", "")

// SanitizeName turns an uploaded file name into a single key segment.
func SanitizeName(name string) string {
	name = unsafeName.Replace(strings.TrimSpace(path.Base(strings.ReplaceAll(name, "\\", "/"))))
	if name == "" || name == "." {
		return "input"
	}
	return name
}

// InputKey is where the n-th input of a run is stored: runs/<id>/inputs/<n>_<name>.
func InputKey(runID string, n int, name string) string {
	return fmt.Sprintf("runs/%s/inputs/%03d_%s", runID, n, SanitizeName(name))
}

// ArchiveKey is where the zip of a run is stored: runs/<id>/<archiveName>.
func ArchiveKey(runID, archiveName string) string {
	return fmt.Sprintf("runs/%s/%s", runID, SanitizeName(archiveName))
}
