package processor

import (
	"os"
	"path/filepath"

	"lienzo/internal/ports"
)

type Cleanup struct {
	storageRoot  string
	cleanupLocal bool
	sp           ports.StorageProvider
}

func NewCleanup(storageRoot string, cleanupLocal bool, sp ports.StorageProvider) *Cleanup {
	return &Cleanup{
		storageRoot:  storageRoot,
		cleanupLocal: cleanupLocal,
		sp:           sp,
	}
}

// CleanupRun borra las copias locales de los inputs del run
func (c *Cleanup) CleanupRun(runID string) {
	if !c.shouldCleanup() || runID == "" {
		return
	}

	// Solo la carpeta de trabajo del run; los objetos en storage se quedan
	_ = os.RemoveAll(filepath.Join(c.storageRoot, "work", runID))
}

func (c *Cleanup) shouldCleanup() bool {
	return c.cleanupLocal && c.sp.Provider() != "localfs"
}
