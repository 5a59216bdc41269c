package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/anderwm/KiCost/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu       sync.Mutex
	data     map[string]interface{}
	getError error
	setError error
	sets     int
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string]interface{}),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockPricingClient is a mock implementation of domain.PricingClient. It
// answers each query from offers keyed by MPN, or with failErr for any
// batch containing an MPN listed in failMPNs.
type MockPricingClient struct {
	mu       sync.Mutex
	offers   map[string][]domain.MatchItem
	failMPNs map[string]bool
	failErr  error
	batches  [][]domain.PartQuery
	// onCall runs before each answer; tests use it to cancel mid-run
	onCall func(call int)
}

func NewMockPricingClient() *MockPricingClient {
	return &MockPricingClient{
		offers:   make(map[string][]domain.MatchItem),
		failMPNs: make(map[string]bool),
		failErr:  domain.ErrPricingAPIFailure,
	}
}

func (m *MockPricingClient) MatchParts(ctx context.Context, queries []domain.PartQuery) ([]domain.MatchResult, error) {
	m.mu.Lock()
	m.batches = append(m.batches, append([]domain.PartQuery(nil), queries...))
	call := len(m.batches)
	hook := m.onCall
	m.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var results []domain.MatchResult
	for _, q := range queries {
		if m.failMPNs[q.MPN] {
			return nil, m.failErr
		}
		results = append(results, domain.MatchResult{
			Reference: domain.QueryRef(q.Reference),
			Items:     m.offers[q.MPN],
		})
	}
	return results, nil
}

func (m *MockPricingClient) Batches() [][]domain.PartQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]domain.PartQuery(nil), m.batches...)
}

// MockProgress records progress notifications
type MockProgress struct {
	mu       sync.Mutex
	total    int
	advances []int
	finished bool
}

func (m *MockProgress) Start(total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = total
}

func (m *MockProgress) Advance(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advances = append(m.advances, n)
}

func (m *MockProgress) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = true
}

func (m *MockProgress) Done() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := 0
	for _, n := range m.advances {
		sum += n
	}
	return sum
}

// MockBOMReader returns fixed parts per path
type MockBOMReader struct {
	parts        map[string]domain.PartMap
	info         map[string]domain.ProjectInfo
	ignoreFields []string
	err          error
	calls        []string
}

func (m *MockBOMReader) ReadParts(ctx context.Context, path string, ignoreFields []string, variant string) (domain.PartMap, domain.ProjectInfo, error) {
	m.calls = append(m.calls, path)
	if m.err != nil {
		return nil, domain.ProjectInfo{}, m.err
	}
	return m.parts[path], m.info[path], nil
}

func (m *MockBOMReader) GroupIgnoreFields() []string {
	return m.ignoreFields
}

// MockReaderFactory maps tool names to readers
type MockReaderFactory map[string]domain.BOMReader

func (m MockReaderFactory) ReaderFor(tool string) (domain.BOMReader, error) {
	r, ok := m[tool]
	if !ok {
		return nil, domain.ErrUnknownEDATool
	}
	return r, nil
}

// MockSpreadsheetWriter captures the rendered catalog
type MockSpreadsheetWriter struct {
	catalog *domain.Catalog
	opts    domain.SpreadsheetOptions
	err     error
	calls   int
}

func (m *MockSpreadsheetWriter) CreateSpreadsheet(catalog *domain.Catalog, opts domain.SpreadsheetOptions) error {
	m.calls++
	m.catalog = catalog
	m.opts = opts
	return m.err
}

func (m *MockSpreadsheetWriter) Extension() string {
	return ".csv"
}

// part builds a source record
func part(kv ...string) *domain.PartRecord {
	fields := domain.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}
	return &domain.PartRecord{Fields: fields}
}

// offer builds a match offer with the given tiers
func offer(seller, sku string, stock int, prices string) domain.Offer {
	return domain.Offer{
		Seller:          domain.Seller{Name: seller},
		SKU:             sku,
		ProductURL:      "https://example.com/" + sku,
		InStockQuantity: &stock,
		Prices:          []byte(prices),
	}
}
