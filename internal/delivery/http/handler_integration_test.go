package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anderwm/KiCost/config"
	"github.com/anderwm/KiCost/internal/domain"
	"github.com/anderwm/KiCost/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:*", "https://bom.example.com"},
		},
	}
}

// setupTestRouter creates a test router with an optional costing service
func setupTestRouter(costing *usecase.CostingService) *gin.Engine {
	logger := zerolog.Nop()
	router := SetupRouter(testConfig(), NewHandler(costing), &logger)
	if router == nil {
		panic("setupTestRouter: SetupRouter returned nil *gin.Engine")
	}
	return router
}

// setupPricedRouter wires a costing service whose pricing API is client
func setupPricedRouter(client domain.PricingClient) *gin.Engine {
	reconciler := usecase.NewReconciliationService(client, newMockCacheRepository(), usecase.ReconciliationConfig{
		BatchSize: 10,
		Workers:   1,
		CacheTTL:  time.Hour,
	})
	costing := usecase.NewCostingService(nil, reconciler, nil, nil, usecase.CostingServiceConfig{})
	return setupTestRouter(costing)
}

func postCatalog(router *gin.Engine, payload string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", "/api/v1/catalog", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type catalogResponse struct {
	Data    domain.Catalog `json:"data"`
	Warning string         `json:"warning"`
	Error   string         `json:"error"`
}

func decodeCatalog(t *testing.T, w *httptest.ResponseRecorder) catalogResponse {
	t.Helper()
	var resp catalogResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v (body %s)", err, w.Body.String())
	}
	return resp
}

const boardPayload = `{
	"projects": [{
		"info": {"title": "board", "company": "ACME", "date": "2024-01-02"},
		"parts": {
			"R1": {"fields": {"value": "10k", "manf#": "RC0603FR-0710KL"}},
			"R2": {"fields": {"Value": "10k", "manf#": "RC0603FR-0710KL"}},
			"C1": {"fields": {"value": "100n"}}
		}
	}],
	"include": ["digikey"]
}`

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter(nil)

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "kicost" {
			t.Errorf("service = %v, want kicost", response["service"])
		}
		version, ok := response["version"].(string)
		if !ok || strings.TrimSpace(version) == "" {
			t.Errorf("version = %v, want non-empty string", response["version"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter(nil)

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestDistributorsEndpoint(t *testing.T) {
	router := setupTestRouter(nil)

	req, _ := http.NewRequest("GET", "/api/v1/distributors", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var response struct {
		Distributors []domain.Distributor `json:"distributors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response.Distributors) == 0 {
		t.Fatal("expected at least one distributor")
	}
	for _, d := range response.Distributors {
		if d.ID == domain.LocalTemplateID {
			t.Errorf("local template must not be listed")
		}
	}
}

func TestCatalogEndpoint(t *testing.T) {
	t.Run("returns 503 without costing service", func(t *testing.T) {
		w := postCatalog(setupTestRouter(nil), boardPayload)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
		}
	})

	t.Run("groups parts without pricing", func(t *testing.T) {
		costing := usecase.NewCostingService(nil, nil, nil, nil, usecase.CostingServiceConfig{})
		w := postCatalog(setupTestRouter(costing), strings.Replace(boardPayload, `"include": ["digikey"]`, `"no_price": true`, 1))

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
		}
		resp := decodeCatalog(t, w)
		if len(resp.Data.Groups) != 2 {
			t.Fatalf("groups = %d, want 2", len(resp.Data.Groups))
		}
		if got := strings.Join(resp.Data.Groups[1].Refs, ","); got != "R1,R2" {
			t.Errorf("refs = %q, want R1,R2", got)
		}
		if len(resp.Data.Distributors) != 0 {
			t.Errorf("distributors = %d, want 0 with no_price", len(resp.Data.Distributors))
		}
		if resp.Data.RunID == "" {
			t.Error("expected run id")
		}
	})

	t.Run("prices parts through the pricing API", func(t *testing.T) {
		client := &mockPricingClient{
			offers: map[string][]domain.Offer{
				"RC0603FR-0710KL": {{
					Seller: domain.Seller{Name: "Digi-Key"},
					SKU:    "311-10.0KHRCT-ND",
					Prices: []byte(`{"USD": [[1, 0.10], [10, 0.05]]}`),
				}},
			},
		}
		w := postCatalog(setupPricedRouter(client), boardPayload)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
		}
		resp := decodeCatalog(t, w)
		resistor := resp.Data.Groups[1]
		if resistor.PartNum["digikey"] != "311-10.0KHRCT-ND" {
			t.Errorf("digikey cat# = %q, want 311-10.0KHRCT-ND", resistor.PartNum["digikey"])
		}
		if resistor.PriceTiers["digikey"][10] != 0.05 {
			t.Errorf("digikey price at 10 = %v, want 0.05", resistor.PriceTiers["digikey"][10])
		}
		if client.calls() != 1 {
			t.Errorf("pricing API calls = %d, want 1", client.calls())
		}
	})

	t.Run("returns 400 for invalid JSON", func(t *testing.T) {
		costing := usecase.NewCostingService(nil, nil, nil, nil, usecase.CostingServiceConfig{})
		w := postCatalog(setupTestRouter(costing), `{invalid json}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 400 without projects", func(t *testing.T) {
		costing := usecase.NewCostingService(nil, nil, nil, nil, usecase.CostingServiceConfig{})
		w := postCatalog(setupTestRouter(costing), `{"projects": []}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if resp := decodeCatalog(t, w); resp.Error == "" {
			t.Error("expected error field in response")
		}
	})

	t.Run("requires correct path and method", func(t *testing.T) {
		router := setupTestRouter(nil)

		for _, path := range []string{"/api/v1/catalog/", "/api/catalog", "/catalog"} {
			req, _ := http.NewRequest("POST", path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusNotFound && rec.Code != http.StatusMovedPermanently && rec.Code != http.StatusTemporaryRedirect {
				t.Errorf("Path %s: Status = %d, want not found or redirect", path, rec.Code)
			}
		}

		req, _ := http.NewRequest("GET", "/api/v1/catalog", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET catalog: Status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	router := setupTestRouter(nil)

	req, _ := http.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:5173")
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q, want %q", got, "true")
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Errorf("expected %s header", requestIDHeader)
	}
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	router := setupTestRouter(nil)
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	req, _ := http.NewRequest("GET", "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// TestJSONResponses tests that all responses are valid JSON
func TestJSONResponses(t *testing.T) {
	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/api/v1/distributors"},
		{"POST", "/api/v1/catalog"},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			router := setupTestRouter(nil)

			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			wantContentType := "application/json; charset=utf-8"
			if got := w.Header().Get("Content-Type"); got != wantContentType {
				t.Errorf("Content-Type = %q, want %q", got, wantContentType)
			}

			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Errorf("Response should be valid JSON, got error: %v", err)
			}
		})
	}
}

// --- Mock implementations ---

// mockCacheRepository is a mock implementation of domain.CacheRepository
type mockCacheRepository struct {
	mu   sync.Mutex
	data map[string]interface{}
}

func newMockCacheRepository() *mockCacheRepository {
	return &mockCacheRepository{data: make(map[string]interface{})}
}

func (m *mockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *mockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// mockPricingClient is a mock implementation of domain.PricingClient
type mockPricingClient struct {
	mu     sync.Mutex
	offers map[string][]domain.Offer
	n      int
}

func (m *mockPricingClient) MatchParts(ctx context.Context, queries []domain.PartQuery) ([]domain.MatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	results := make([]domain.MatchResult, 0, len(queries))
	for _, q := range queries {
		results = append(results, domain.MatchResult{
			Reference: domain.QueryRef(q.Reference),
			Items:     []domain.MatchItem{{MPN: q.MPN, Offers: m.offers[q.MPN]}},
		})
	}
	return results, nil
}

func (m *mockPricingClient) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.n
}
