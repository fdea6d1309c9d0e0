package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/IshaanNene/Shelfie/internal/config"
	"github.com/IshaanNene/Shelfie/internal/observability"
	"github.com/IshaanNene/Shelfie/internal/pipeline"
	"github.com/IshaanNene/Shelfie/internal/types"
)

// File name kinds.
const (
	KindProducts      = "products"
	KindMultiCategory = "multi_category"
)

// Export describes one write of a crawl's products.
type Export struct {
	Site string
	// MultiCategory selects the multi_category file name kind.
	MultiCategory bool
	// DedupeByName drops later products whose cleaned name repeats.
	DedupeByName bool
	At           time.Time
}

func (e Export) kind() string {
	if e.MultiCategory {
		return KindMultiCategory
	}
	return KindProducts
}

// Open builds the backends configured in cfg: one file per export format
// plus MongoDB when enabled.
func Open(cfg *config.Config, exp Export, logger *slog.Logger) (*MultiStorage, error) {
	at := exp.At
	if at.IsZero() {
		at = time.Now()
	}

	var backends []Storage
	closeAll := func() {
		for _, b := range backends {
			_ = b.Close()
		}
	}

	for _, format := range cfg.Export.Formats {
		format = strings.ToLower(format)
		path := filepath.Join(cfg.Export.OutputDir, FileName(cfg.Export.Prefix, exp.Site, exp.kind(), at, format))

		var (
			b   Storage
			err error
		)
		switch format {
		case "xlsx":
			b, err = NewXLSXStorage(path, logger)
		case "csv":
			b, err = NewCSVStorage(path, logger)
		case "json":
			b, err = NewJSONStorage(path, logger)
		case "jsonl":
			b, err = NewJSONLStorage(path, logger)
		default:
			err = fmt.Errorf("unsupported export format %q", format)
		}
		if err != nil {
			closeAll()
			return nil, &types.StorageError{Backend: format, Err: err}
		}
		backends = append(backends, b)
	}

	if m := cfg.Storage.Mongo; m.Enabled {
		b, err := NewMongoStorage(m.URI, m.Database, m.Collection, logger)
		if err != nil {
			closeAll()
			return nil, &types.StorageError{Backend: "mongodb", Err: err}
		}
		backends = append(backends, b)
	}

	return NewMultiStorage(backends, logger), nil
}

// Write stores products in every configured backend and returns the files
// written. Nothing is written for an empty product list.
func Write(cfg *config.Config, exp Export, products []*types.Product, metrics *observability.Metrics, logger *slog.Logger) ([]string, error) {
	if exp.DedupeByName {
		products = DedupeByName(products, logger)
	}
	if len(products) == 0 {
		return nil, types.ErrNoProducts
	}

	ms, err := Open(cfg, exp, logger)
	if err != nil {
		return nil, err
	}

	storeErr := ms.Store(products)
	closeErr := ms.Close()
	if storeErr != nil {
		return ms.Paths(), storeErr
	}
	if closeErr != nil {
		return ms.Paths(), closeErr
	}

	if metrics != nil {
		metrics.ProductsStored.Add(int64(len(products)))
	}
	logger.Info("products exported", "site", exp.Site, "products", len(products), "files", ms.Paths())
	return ms.Paths(), nil
}

// DedupeByName keeps the first product of every cleaned name.
func DedupeByName(products []*types.Product, logger *slog.Logger) []*types.Product {
	p := pipeline.New(logger).Use(pipeline.NewDedupMiddleware(pipeline.ByCleanName))
	return p.ProcessAll(products)
}
