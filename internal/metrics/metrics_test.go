package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JonMunkholm/ucsv/internal/core"
	"github.com/JonMunkholm/ucsv/internal/dialect"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordRead(dialect.PET)
	c.RecordRead(dialect.PET)
	c.RecordWritten(dialect.Excel)
	c.BytesRead(dialect.PET, 42)
	c.BytesRead(dialect.PET, 0)
	c.SessionError("read", core.KindParse)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"records read", testutil.ToFloat64(c.recordsRead.WithLabelValues("pet")), 2},
		{"records written", testutil.ToFloat64(c.recordsWritten.WithLabelValues("excel")), 1},
		{"bytes read", testutil.ToFloat64(c.bytesRead.WithLabelValues("pet")), 42},
		{"errors", testutil.ToFloat64(c.errors.WithLabelValues(core.KindParse)), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollectorObservesFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.csv")
	if err := os.WriteFile(src, []byte("\"a\"\r\n\"1\"\r\n\"2\"\r\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewCollector(prometheus.NewRegistry())
	files := core.NewFiles(dialect.NewRegistry(), core.WithObserver(c))
	ctx := context.Background()

	recs, err := files.ReadAll(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	if err := files.Export(ctx, filepath.Join(dir, "out.tsv"), slices.Values(recs)); err != nil {
		t.Fatal(err)
	}
	if _, err := files.ReadAll(ctx, filepath.Join(dir, "missing.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}

	if got := testutil.ToFloat64(c.recordsRead.WithLabelValues("pet")); got != 2 {
		t.Errorf("records read = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.recordsWritten.WithLabelValues("excel-tsv")); got != 2 {
		t.Errorf("records written = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.errors.WithLabelValues(core.KindNotFound)); got != 1 {
		t.Errorf("not_found errors = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	c := NewCollector(nil)
	c.RecordRead(dialect.ExcelTSV)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `ucsv_records_read_total{dialect="excel-tsv"} 1`) {
		t.Errorf("metrics output missing records counter:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("default registry missing Go collector")
	}
}
