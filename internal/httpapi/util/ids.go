package util

import "github.com/google/uuid"

// NewID returns "<prefix>_<uuid>", e.g. "run_0f8c…".
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
