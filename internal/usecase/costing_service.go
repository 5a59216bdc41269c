package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/anderwm/KiCost/internal/domain"
	"github.com/anderwm/KiCost/internal/logging"
	"github.com/google/uuid"
)

// ProjectBOM is one parsed BOM source
type ProjectBOM struct {
	Info  domain.ProjectInfo `json:"info"`
	Parts domain.PartMap     `json:"parts"`
}

// ConsolidationRequest holds the inputs of a consolidation run
type ConsolidationRequest struct {
	Projects []ProjectBOM
	// Include limits the distributors to these identifiers; empty means all
	Include []string
	Exclude []string
	// NoPrice disables every distributor, networked and local
	NoPrice     bool
	UserFields  []string
	GroupFields []string
}

// CostRequest holds the inputs of a full costing run from BOM files
type CostRequest struct {
	Files []string
	// Tools and Variants hold one entry per file; a single entry applies to
	// every file and a length mismatch falls back to the first entry. An
	// empty tool is taken from the file extension.
	Tools        []string
	Variants     []string
	IgnoreFields []string
	OutFile      string
	CollapseRefs bool
	ConsolidationRequest
}

// CostResult is the outcome of a costing run
type CostResult struct {
	Catalog *domain.Catalog
	OutFile string
}

// CostingServiceConfig holds configuration for the costing service
type CostingServiceConfig struct {
	// WorkDir receives multi-input output files whose inputs live in different directories
	WorkDir string
}

// CostingService runs the consolidation pipeline
type CostingService struct {
	readers    domain.BOMReaderFactory
	reconciler *ReconciliationService
	writer     domain.SpreadsheetWriter
	progress   domain.ProgressReporter
	workDir    string
}

// NewCostingService creates a costing service with dependencies. readers
// and writer are needed only by Run; reconciler and progress may be nil.
func NewCostingService(
	readers domain.BOMReaderFactory,
	reconciler *ReconciliationService,
	writer domain.SpreadsheetWriter,
	progress domain.ProgressReporter,
	config CostingServiceConfig,
) *CostingService {
	if progress == nil {
		progress = nopProgress{}
	}
	return &CostingService{
		readers:    readers,
		reconciler: reconciler,
		writer:     writer,
		progress:   progress,
		workDir:    config.WorkDir,
	}
}

// Consolidate groups the parts of every project and prices them.
// Flow: normalize -> namespace -> group -> prune -> local data -> remote prices.
// On cancellation the partial catalog is returned with an error wrapping
// domain.ErrCanceled.
func (s *CostingService) Consolidate(ctx context.Context, req ConsolidationRequest) (*domain.Catalog, error) {
	if len(req.Projects) == 0 {
		return nil, domain.ErrNoInputFiles
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.FromContext(ctx)

	reg := domain.NewRegistry(domain.DefaultDistributors())
	if req.NoPrice {
		reg.Clear()
	} else {
		reg.Filter(req.Include, req.Exclude)
	}

	sources := make([]domain.PartMap, len(req.Projects))
	infos := make([]domain.ProjectInfo, len(req.Projects))
	for i, p := range req.Projects {
		sources[i] = NormalizePartMap(p.Parts)
		infos[i] = p.Info
	}
	if len(sources) > 1 {
		logger.Debug().Int("projects", len(sources)).Msg("multiple BOMs, attaching project prefixes to references")
	}
	parts := NamespaceReferences(sources)

	groupFields := make([]string, 0, len(req.GroupFields))
	for _, f := range req.GroupFields {
		groupFields = append(groupFields, CanonicalFieldName(f))
	}
	normalizer := NewFieldNormalizer(reg.IDs(), req.UserFields)
	ignore := normalizer.AugmentIgnore(parts, groupFields)

	grouping := NewGroupingService(ignore)
	groups := grouping.Group(ctx, parts)
	logger.Info().Int("records", len(parts)).Int("groups", len(groups)).Msg("parts grouped")

	PruneDistributors(ctx, groups, reg)
	NewLocalResolver().Resolve(ctx, groups, reg)

	catalog := &domain.Catalog{
		RunID:    runID,
		Groups:   groups,
		Projects: infos,
	}

	var runErr error
	if s.reconciler != nil && !req.NoPrice {
		runErr = s.reconciler.Reconcile(ctx, groups, reg, s.progress)
	}
	catalog.Distributors = reg.Distributors()
	return catalog, runErr
}

// Run reads every BOM file, consolidates the parts and writes the cost sheet.
// Configuration errors are returned before any file is read. A canceled
// run still writes the partial catalog and returns an error wrapping
// domain.ErrCanceled.
func (s *CostingService) Run(ctx context.Context, req CostRequest) (*CostResult, error) {
	if len(req.Files) == 0 {
		return nil, domain.ErrNoInputFiles
	}
	if s.readers == nil || s.writer == nil {
		return nil, fmt.Errorf("%w: costing service has no reader or writer", domain.ErrInvalidRequest)
	}

	tools := spreadPerFile(req.Tools, len(req.Files))
	variants := spreadPerFile(req.Variants, len(req.Files))

	readers := make([]domain.BOMReader, len(req.Files))
	for i, tool := range tools {
		if tool == "" {
			tool = strings.ToLower(strings.TrimPrefix(filepath.Ext(req.Files[i]), "."))
			tools[i] = tool
		}
		r, err := s.readers.ReaderFor(tool)
		if err != nil {
			return nil, err
		}
		readers[i] = r
	}

	creq := req.ConsolidationRequest
	creq.Projects = make([]ProjectBOM, len(req.Files))
	for i, file := range req.Files {
		parts, info, err := readers[i].ReadParts(ctx, file, req.IgnoreFields, variants[i])
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		creq.Projects[i] = ProjectBOM{Info: info, Parts: parts}
	}
	creq.GroupFields = append(append([]string(nil), req.GroupFields...), toolIgnoreFields(tools, readers)...)

	catalog, err := s.Consolidate(ctx, creq)
	if err != nil && !errors.Is(err, domain.ErrCanceled) {
		return nil, err
	}

	outFile := req.OutFile
	if outFile == "" {
		workDir := s.workDir
		if workDir == "" {
			workDir, _ = os.Getwd()
		}
		outFile = OutputFilename(req.Files, s.writer.Extension(), workDir)
	}

	opts := domain.SpreadsheetOptions{
		OutFile:      outFile,
		CollapseRefs: req.CollapseRefs,
		UserFields:   req.UserFields,
		VariantLabel: variantLabel(variants),
	}
	if werr := s.writer.CreateSpreadsheet(catalog, opts); werr != nil {
		return nil, fmt.Errorf("writing %s: %w", outFile, werr)
	}
	logging.FromContext(ctx).Info().Str("file", outFile).Int("groups", len(catalog.Groups)).Msg("cost sheet written")

	return &CostResult{Catalog: catalog, OutFile: outFile}, err
}

// toolIgnoreFields collects the readers' group-ignore fields, plus footprint
// when parts come from more than one EDA tool.
func toolIgnoreFields(tools []string, readers []domain.BOMReader) []string {
	set := make(map[string]bool)
	distinct := make(map[string]bool)
	for i, r := range readers {
		distinct[tools[i]] = true
		for _, f := range r.GroupIgnoreFields() {
			set[f] = true
		}
	}
	if len(distinct) > 1 {
		set[domain.FieldFootprint] = true
	}
	return sortedKeys(set)
}

// spreadPerFile gives every file an entry from values
func spreadPerFile(values []string, n int) []string {
	out := make([]string, n)
	if len(values) == 0 {
		return out
	}
	for i := range out {
		if len(values) == n {
			out[i] = values[i]
		} else {
			out[i] = values[0]
		}
	}
	return out
}

func variantLabel(variants []string) string {
	if len(variants) > 1 {
		return strings.Join(variants, "-")
	}
	if len(variants) == 1 {
		return variants[0]
	}
	return ""
}
