package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"CatalogSync/internal/config"
	"CatalogSync/internal/domain"
	"CatalogSync/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestApp(t *testing.T) *Application {
	t.Helper()

	cfg, err := config.Parse([]byte(`
suppliers:
  - id: s1
    ownerId: shop
    name: Lamps Ltd
    country: DE
    status: active
`))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}

	application, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(application.Close)
	return application
}

func TestImportThroughHTTP(t *testing.T) {
	t.Parallel()

	application := newTestApp(t)

	feed := "sku,title,price,stock,image\nL-1,Desk Lamp,19.90,4,https://cdn.example/l1.jpg\nL-2,Floor Lamp,49.00,0,https://cdn.example/l2.jpg\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, feed)
	}))
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{
		"source":     map[string]any{"locator": srv.URL + "/feed.csv", "type": "csv"},
		"ownerId":    "shop",
		"supplierId": "s1",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/imports", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var res domain.ImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Success || res.Imported != 2 {
		t.Fatalf("expected 2 imported, got %+v", res)
	}

	score, err := application.Service().ScoreSupplier(context.Background(), "s1")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score.SupplierID != "s1" {
		t.Fatalf("unexpected score %+v", score)
	}
}

func TestImportRefusesLocalFilesOverHTTP(t *testing.T) {
	t.Parallel()

	application := newTestApp(t)
	body := `{"source":{"locator":"/etc/passwd","type":"csv","options":{"delimiter":":","header":"false"},"mapping":{"title":"0","sku":"0"}},"ownerId":"attacker"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/imports", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, err := application.Service().FindBackupSupplier(context.Background(), "sku:attacker||root", nil); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("nothing may be stored from a local file, got %v", err)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	application := newTestApp(t)
	application.cfg.HTTP.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Serve(ctx) }()
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("serve returned %v", err)
	}
}

type failingDriver struct{}

func (failingDriver) Start(context.Context, func(time.Time)) error {
	return errors.New("driver unavailable")
}

func (failingDriver) Stop(context.Context) error { return nil }

func TestServeSchedulerFailureLeavesNoListener(t *testing.T) {
	t.Parallel()

	reserved, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := reserved.Addr().String()
	reserved.Close()

	application := newTestApp(t)
	application.cfg.HTTP.Addr = addr
	application.scheduler = usecase.NewScheduler(failingDriver{}, application.service, nil)

	if err := application.Serve(context.Background()); err == nil || !strings.Contains(err.Error(), "start scheduler") {
		t.Fatalf("expected scheduler start error, got %v", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("address still held after failed serve: %v", err)
	}
	ln.Close()
}
