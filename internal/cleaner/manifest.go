package cleaner

import (
	"fmt"
	"os"
	"time"
)

// DeletionManifest keeps track of removed entries
type DeletionManifest struct {
	Files     []DeletedFileInfo
	Timestamp time.Time
	TotalSize int64
	DryRun    bool
}

// DeletedFileInfo represents information about a removed entry
type DeletedFileInfo struct {
	Path      string
	Size      int64
	Kind      string
	DeletedAt time.Time
}

// NewDeletionManifest creates a new DeletionManifest
func NewDeletionManifest(dryRun bool) *DeletionManifest {
	return &DeletionManifest{
		Files:     []DeletedFileInfo{},
		Timestamp: time.Now(),
		DryRun:    dryRun,
	}
}

// Add adds an entry to the manifest
func (m *DeletionManifest) Add(path string, size int64, kind string) {
	m.Files = append(m.Files, DeletedFileInfo{
		Path:      path,
		Size:      size,
		Kind:      kind,
		DeletedAt: time.Now(),
	})
	m.TotalSize += size
}

// Save saves the manifest to a file
func (m *DeletionManifest) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	title := "Deletion Manifest"
	if m.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintf(file, "%s\n", title)
	fmt.Fprintf(file, "Created: %s\n", m.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(file, "Total Size: %d bytes\n", m.TotalSize)
	fmt.Fprintf(file, "Total Entries: %d\n\n", len(m.Files))

	for _, f := range m.Files {
		fmt.Fprintf(file, "%s | %d bytes | %s | %s\n",
			f.Path, f.Size, f.Kind, f.DeletedAt.Format(time.RFC3339))
	}

	return file.Close()
}
