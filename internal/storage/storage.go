// Package storage writes crawl results to files and databases.
package storage

import (
	"fmt"
	"time"

	"github.com/IshaanNene/Shelfie/internal/types"
)

// Storage is the interface for all storage backends.
type Storage interface {
	// Store persists a batch of products.
	Store(products []*types.Product) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// Pather is implemented by file backends.
type Pather interface {
	// Path returns the file the backend writes.
	Path() string
}

// TimestampLayout is the run timestamp used in file names.
const TimestampLayout = "2006-01-02_15-04-05"

// FileName returns "<prefix>_<site>_<kind>_<timestamp>.<ext>", for
// example shelfie_lulu_products_2024-05-01_10-00-00.xlsx.
func FileName(prefix, site, kind string, at time.Time, ext string) string {
	if prefix == "" {
		prefix = "shelfie"
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s", prefix, site, kind, at.Format(TimestampLayout), ext)
}
