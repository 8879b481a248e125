package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeOps struct {
	lastImport usecase.ImportRequest
	lastSync   domain.SyncType
	syncErr    error
	importErr  error
}

func (f *fakeOps) DetectSource(locator string) domain.Detection {
	return domain.Detection{Type: domain.SourceCSV, Platform: "generic", Confidence: 70}
}

func (f *fakeOps) ImportFromSource(_ context.Context, req usecase.ImportRequest) (domain.ImportResult, error) {
	f.lastImport = req
	if f.importErr != nil {
		return domain.ImportResult{RunID: "run-1"}, f.importErr
	}
	return domain.ImportResult{RunID: "run-1", Success: true, Total: 3, Imported: 3}, nil
}

func (f *fakeOps) SyncSupplier(_ context.Context, id string, t domain.SyncType) (domain.SyncResult, error) {
	f.lastSync = t
	if f.syncErr != nil {
		return domain.SyncResult{SupplierID: id, State: domain.RunFailed}, f.syncErr
	}
	return domain.SyncResult{SupplierID: id, State: domain.RunCompleted, Success: true}, nil
}

func (f *fakeOps) ScoreSupplier(_ context.Context, id string) (domain.SupplierScore, error) {
	if id == "missing" {
		return domain.SupplierScore{}, &domain.OperationError{Op: "scoreSupplier", Err: domain.ErrSupplierNotFound}
	}
	return domain.SupplierScore{SupplierID: id, Score: 72.5}, nil
}

func (f *fakeOps) ApplyPricingRules(_ context.Context, rules []domain.PricingRule, _ domain.PricingScope) (domain.PricingResult, error) {
	return domain.PricingResult{Success: true, Total: len(rules)}, nil
}

func (f *fakeOps) FindBackupSupplier(_ context.Context, key string, _ *domain.BackupCriteria) (domain.BackupResult, error) {
	return domain.BackupResult{ProductKey: key, Candidates: []domain.Supplier{}}, nil
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestDetectRoute(t *testing.T) {
	t.Parallel()

	router := NewRouter(&fakeOps{}, nil)
	rec := do(t, router, http.MethodPost, "/v1/sources/detect", `{"locator":"https://x.example/feed.csv"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"type":"csv"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, "/v1/sources/detect", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestImportRoute(t *testing.T) {
	t.Parallel()

	ops := &fakeOps{}
	router := NewRouter(ops, nil)
	rec := do(t, router, http.MethodPost, "/v1/imports", `{
		"source": {"locator": "https://api.example/products", "type": "api", "auth": {"mode": "bearer", "token": "secret"}},
		"ownerId": "shop",
		"duplicateStrategy": "update",
		"criteria": {"minStock": 2}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d %s", rec.Code, rec.Body.String())
	}

	var res domain.ImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil || res.Imported != 3 {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	req := ops.lastImport
	if req.Source.Auth.Token != "secret" || req.Strategy != domain.DuplicateUpdate || req.Criteria == nil || req.Criteria.MinStock != 2 {
		t.Fatalf("request not bound: %+v", req)
	}
}

func TestImportRouteMapsSourceFailure(t *testing.T) {
	t.Parallel()

	ops := &fakeOps{importErr: &domain.OperationError{Op: "importFromSource", Err: &domain.SourceError{Locator: "x", Stage: "extract", Err: domain.ErrTimeout}}}
	rec := do(t, NewRouter(ops, nil), http.MethodPost, "/v1/imports", `{"source":{"locator":"https://x.example/feed"}}`)
	if rec.Code != http.StatusBadGateway || !strings.Contains(rec.Body.String(), `"runId":"run-1"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestImportRouteRejectsLocalPaths(t *testing.T) {
	t.Parallel()

	for _, locator := range []string{"/etc/passwd", "file:///etc/passwd", "../config.yaml"} {
		ops := &fakeOps{}
		body := fmt.Sprintf(`{"source":{"locator":%q,"type":"csv","options":{"delimiter":":","header":"false"},"mapping":{"title":"0","sku":"0"}}}`, locator)
		rec := do(t, NewRouter(ops, nil), http.MethodPost, "/v1/imports", body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d %s", locator, rec.Code, rec.Body.String())
		}
		if ops.lastImport.Source.Locator != "" {
			t.Fatalf("%s: import must not run", locator)
		}
	}
}

func TestSyncRoute(t *testing.T) {
	t.Parallel()

	ops := &fakeOps{}
	router := NewRouter(ops, nil)
	rec := do(t, router, http.MethodPost, "/v1/suppliers/s1/sync", `{"type":"inventory"}`)
	if rec.Code != http.StatusOK || ops.lastSync != domain.SyncInventory {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, "/v1/suppliers/s1/sync", "")
	if rec.Code != http.StatusOK || ops.lastSync != domain.SyncFull {
		t.Fatalf("empty body should default to full sync, got %d %s", rec.Code, ops.lastSync)
	}

	ops.syncErr = fmt.Errorf("sync: %w", domain.ErrSupplierDisconnected)
	rec = do(t, router, http.MethodPost, "/v1/suppliers/s1/sync", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestScoreRoute(t *testing.T) {
	t.Parallel()

	router := NewRouter(&fakeOps{}, nil)
	if rec := do(t, router, http.MethodPost, "/v1/suppliers/s1/score", ""); rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec := do(t, router, http.MethodPost, "/v1/suppliers/missing/score", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPricingAndBackupRoutes(t *testing.T) {
	t.Parallel()

	router := NewRouter(&fakeOps{}, nil)
	rec := do(t, router, http.MethodPost, "/v1/pricing/apply", `{"rules":[{"id":"r","type":"fixedMarkup","value":5}],"scope":{"ownerId":"o"}}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Fatalf("unexpected pricing response %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, "/v1/backups", `{"productKey":"sku:o|s|a"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"candidates":[]`) {
		t.Fatalf("unexpected backup response %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	router := NewRouter(&fakeOps{}, nil)
	if rec := do(t, router, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	rec := do(t, router, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "catalogsync_http_requests_total") {
		t.Fatalf("metrics endpoint missing series")
	}
}
