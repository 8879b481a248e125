package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	cases := map[int]string{200: "2xx", 301: "3xx", 404: "4xx", 503: "5xx", 0: "unknown"}
	for code, want := range cases {
		if got := classifyStatus(code); got != want {
			t.Fatalf("status %d: expected %s, got %s", code, want, got)
		}
	}
}

func TestHandlerExportsRecordedSeries(t *testing.T) {
	RecordRequest("GET", "/healthz", 200, 10*time.Millisecond)
	RecordImport(3, 1, 2, 1, 0, map[string]int{"missing_title": 2})
	RecordSync("full", "completed", map[string]int{"price": 1})
	RecordFetch(0, errors.New("dial"))
	SetSupplierScore("sup-1", 81.5)
	RecordPriceUpdates(4)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`catalogsync_http_requests_total{endpoint="/healthz",method="GET",status="2xx"}`,
		`catalogsync_import_rejections_total{reason="missing_title"}`,
		`catalogsync_sync_runs_total{state="completed",type="full"}`,
		`catalogsync_fetch_attempts_total{result="transport"}`,
		`catalogsync_supplier_score{supplier="sup-1"} 81.5`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output lacks %s", want)
		}
	}
}
