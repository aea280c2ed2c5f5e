package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"tms-dashboard/internal/ingest"
	"tms-dashboard/internal/observability"
	"tms-dashboard/internal/testutil"
)

func quietAnalytics(opts ...Option) *Analytics {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAnalytics(append([]Option{WithLogger(logger)}, opts...)...)
}

func TestNewAnalytics(t *testing.T) {
	a := NewAnalytics()
	if a == nil {
		t.Fatal("NewAnalytics() returned nil")
	}
	if a.Current() != nil {
		t.Error("new service should have no snapshot")
	}
	if _, err := a.Metrics(); !errors.Is(err, ErrNoData) {
		t.Errorf("Metrics() error = %v, want ErrNoData", err)
	}
	if _, err := a.Summary(); !errors.Is(err, ErrNoData) {
		t.Errorf("Summary() error = %v, want ErrNoData", err)
	}
	if a.parser == nil {
		t.Error("parser should be initialized")
	}
}

func TestAnalytics_Ingest(t *testing.T) {
	a := quietAnalytics(WithMetrics(observability.NewMetrics()))
	data := testutil.Workbook(t, testutil.OTPSheet("ON TIME", "ON TIME", "LATE", "LATE"))

	snap, cached, err := a.Ingest(context.Background(), bytes.NewReader(data), "week12.xlsx")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if cached {
		t.Error("first upload should not be a cache hit")
	}
	if snap.UploadID == "" || snap.ContentHash == "" {
		t.Errorf("snapshot identity not set: %+v", snap)
	}
	if snap.Dataset.Source.UploadID != snap.UploadID {
		t.Errorf("dataset upload id = %q, want %q", snap.Dataset.Source.UploadID, snap.UploadID)
	}

	m, err := a.Metrics()
	if err != nil {
		t.Fatal(err)
	}
	if m.TotalOrders != 4 || m.OnTimeOrders != 2 || m.OnTimePercent != 50 {
		t.Errorf("metrics = %+v, want 4 orders, 2 on time, 50%%", m)
	}

	s, err := a.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if s.Timing == nil || s.Delays == nil {
		t.Error("timing views should be derived when the timing sheet parsed")
	}
	if s.Costs != nil || s.Margins != nil {
		t.Error("financial views should be absent without a cost sheet")
	}
}

func TestAnalytics_Ingest_Cache(t *testing.T) {
	a := quietAnalytics()
	ctx := context.Background()
	first := testutil.Workbook(t, testutil.OTPSheet("ON TIME"))
	second := testutil.Workbook(t, testutil.OTPSheet("ON TIME", "LATE"))

	snap1, _, err := a.IngestBytes(ctx, first, "a.xlsx")
	if err != nil {
		t.Fatal(err)
	}

	again, cached, err := a.IngestBytes(ctx, first, "a-renamed.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if !cached || again != snap1 {
		t.Error("identical content should reuse the current snapshot")
	}

	snap2, cached, err := a.IngestBytes(ctx, second, "b.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if cached || snap2 == snap1 {
		t.Error("changed content should produce a new snapshot")
	}
	if snap2.Metrics.TotalOrders != 2 {
		t.Errorf("TotalOrders = %d, want 2", snap2.Metrics.TotalOrders)
	}

	// Only the most recent upload is cached.
	back, cached, err := a.IngestBytes(ctx, first, "a.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if cached || back == snap1 {
		t.Error("evicted content should be parsed again")
	}

	stats := a.Stats()
	if stats["uploads"] != int64(3) || stats["cache_hits"] != int64(1) {
		t.Errorf("stats = %v", stats)
	}
}

func TestAnalytics_Ingest_FailureDiscardsSnapshot(t *testing.T) {
	a := quietAnalytics()
	ctx := context.Background()

	if _, _, err := a.IngestBytes(ctx, testutil.Workbook(t, testutil.OTPSheet("LATE")), "ok.xlsx"); err != nil {
		t.Fatal(err)
	}

	_, _, err := a.IngestBytes(ctx, []byte("order,status\nT1,LATE\n"), "orders.csv")
	if !errors.Is(err, ingest.ErrIngestion) {
		t.Fatalf("error = %v, want ErrIngestion", err)
	}
	if a.Current() != nil {
		t.Error("failed upload should discard the previous snapshot")
	}
	if stats := a.Stats(); stats["loaded"] != false || stats["failures"] != int64(1) {
		t.Errorf("stats = %v", stats)
	}
}

func TestAnalytics_LoadFromFile(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "valid workbook",
			path: func(t *testing.T) string {
				return testutil.WriteFile(t, "tms.xlsx", testutil.Workbook(t, testutil.OTPSheet("ON TIME")))
			},
		},
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return t.TempDir() + "/absent.xlsx" },
			wantErr: true,
		},
		{
			name: "not a spreadsheet",
			path: func(t *testing.T) string {
				return testutil.WriteFile(t, "notes.txt", []byte("hello"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := quietAnalytics()
			snap, err := a.LoadFromFile(context.Background(), tt.path(t))
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadFromFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && snap.Dataset.Source.FileName != "tms.xlsx" {
				t.Errorf("FileName = %q, want base name", snap.Dataset.Source.FileName)
			}
		})
	}
}

func TestAnalytics_Subscribe(t *testing.T) {
	a := quietAnalytics()
	ch, unsubscribe := a.Subscribe()

	if _, _, err := a.IngestBytes(context.Background(), testutil.Workbook(t, testutil.OTPSheet("LATE")), "a.xlsx"); err != nil {
		t.Fatal(err)
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("subscriber was not notified")
	}

	if got := a.Stats()["subscribers"]; got != 1 {
		t.Errorf("subscribers = %v, want 1", got)
	}
	unsubscribe()
	unsubscribe()
	if got := a.Stats()["subscribers"]; got != 0 {
		t.Errorf("subscribers after unsubscribe = %v, want 0", got)
	}
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	a := quietAnalytics()
	ctx := context.Background()
	uploads := [][]byte{
		testutil.Workbook(t, testutil.OTPSheet("ON TIME")),
		testutil.Workbook(t, testutil.OTPSheet("ON TIME", "LATE")),
	}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 5 {
				if _, _, err := a.IngestBytes(ctx, uploads[(i+j)%2], "x.xlsx"); err != nil {
					t.Error(err)
				}
			}
		}(i)
	}
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if snap := a.Current(); snap != nil && snap.Metrics.TotalOrders != len(snap.Dataset.Timing.Records) {
					t.Error("snapshot metrics disagree with its dataset")
				}
				_ = a.Stats()
			}
		}()
	}
	wg.Wait()

	if a.Current() == nil {
		t.Error("a snapshot should be published")
	}
}

func BenchmarkAnalytics_Current(b *testing.B) {
	a := quietAnalytics()
	if _, _, err := a.IngestBytes(context.Background(), testutil.Workbook(b, testutil.OTPSheet("ON TIME", "LATE")), "b.xlsx"); err != nil {
		b.Fatal(err)
	}

	for b.Loop() {
		_, _ = a.Metrics()
	}
}

func BenchmarkAnalytics_IngestCached(b *testing.B) {
	a := quietAnalytics()
	data := testutil.Workbook(b, testutil.OTPSheet("ON TIME", "LATE"))
	ctx := context.Background()
	if _, _, err := a.IngestBytes(ctx, data, "b.xlsx"); err != nil {
		b.Fatal(err)
	}

	for b.Loop() {
		_, _, _ = a.IngestBytes(ctx, data, "b.xlsx")
	}
}
