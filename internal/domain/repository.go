package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// PricingClient defines the interface for the remote part-matching API.
// A transport failure fails the whole batch.
type PricingClient interface {
	MatchParts(ctx context.Context, queries []PartQuery) ([]MatchResult, error)
}

// BOMReader extracts part records and project metadata from one BOM file
type BOMReader interface {
	ReadParts(ctx context.Context, path string, ignoreFields []string, variant string) (PartMap, ProjectInfo, error)
	// GroupIgnoreFields lists fields this tool fills inconsistently and
	// that must never split otherwise identical parts.
	GroupIgnoreFields() []string
}

// BOMReaderFactory resolves an EDA tool name to its reader
type BOMReaderFactory interface {
	ReaderFor(tool string) (BOMReader, error)
}

// SpreadsheetOptions controls how a catalog is rendered
type SpreadsheetOptions struct {
	OutFile      string
	CollapseRefs bool
	UserFields   []string
	VariantLabel string
}

// SpreadsheetWriter renders a finalized catalog
type SpreadsheetWriter interface {
	CreateSpreadsheet(catalog *Catalog, opts SpreadsheetOptions) error
	Extension() string
}

// ProgressReporter observes reconciliation progress in units of parts
type ProgressReporter interface {
	Start(total int)
	Advance(n int)
	Finish()
}
