package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tms-dashboard/internal/derive"
	"tms-dashboard/internal/ingest"
	"tms-dashboard/internal/models"
	"tms-dashboard/internal/observability"
)

// ErrNoData is returned by the read accessors before any upload succeeded.
var ErrNoData = errors.New("no dataset loaded")

// Snapshot is the result of one successful upload. It is never mutated
// after publication.
type Snapshot struct {
	Dataset     *models.Dataset       `json:"-"`
	Metrics     models.DerivedMetrics `json:"metrics"`
	Summary     models.Summary        `json:"summary"`
	Report      *ingest.Report        `json:"report"`
	UploadID    string                `json:"upload_id"`
	ContentHash string                `json:"content_hash"`
	LoadedAt    time.Time             `json:"loaded_at"`
}

type Option func(*Analytics)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analytics) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(a *Analytics) { a.metrics = m }
}

func WithParser(p *ingest.Parser) Option {
	return func(a *Analytics) { a.parser = p }
}

func WithReportOptions(opts derive.Options) Option {
	return func(a *Analytics) { a.reportOpts = opts }
}

// Analytics holds the current snapshot. Readers load it without locking;
// ingestions are serialized so the cache check and the swap agree.
type Analytics struct {
	current atomic.Pointer[Snapshot]
	ingest  sync.Mutex

	parser     *ingest.Parser
	reportOpts derive.Options
	logger     *slog.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer

	uploads   atomic.Int64
	cacheHits atomic.Int64
	failures  atomic.Int64

	subsMu sync.Mutex
	subs   map[chan struct{}]struct{}
}

func NewAnalytics(opts ...Option) *Analytics {
	a := &Analytics{
		reportOpts: derive.DefaultOptions(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("tms-dashboard/services"),
		subs:       make(map[chan struct{}]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.parser == nil {
		a.parser = ingest.NewParser(a.logger, ingest.Options{})
	}
	return a
}

// Ingest reads an upload fully and publishes its snapshot. The boolean
// reports whether the most recent snapshot was reused because the content
// hash did not change.
func (a *Analytics) Ingest(ctx context.Context, r io.Reader, name string) (*Snapshot, bool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("%w: read %s: %w", ingest.ErrIngestion, name, err)
	}
	return a.IngestBytes(ctx, data, name)
}

func (a *Analytics) IngestBytes(ctx context.Context, data []byte, name string) (*Snapshot, bool, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	ctx, span := a.tracer.Start(ctx, "services.Ingest", trace.WithAttributes(
		attribute.String("file.name", name),
		attribute.String("file.sha256", hash),
	))
	defer span.End()

	a.ingest.Lock()
	defer a.ingest.Unlock()

	start := time.Now()
	if cur := a.current.Load(); cur != nil && cur.ContentHash == hash {
		a.cacheHits.Add(1)
		a.observeUpload("cached", time.Since(start))
		span.SetAttributes(attribute.Bool("cache.hit", true))
		a.logger.InfoContext(ctx, "upload unchanged, reusing snapshot",
			"file", name, "upload_id", cur.UploadID)
		return cur, true, nil
	}

	ds, report, err := a.parser.ParseBytes(ctx, data, name)
	if err != nil {
		a.failures.Add(1)
		a.current.Store(nil)
		a.observeUpload("failed", time.Since(start))
		a.setLoaded(false)
		span.RecordError(err)
		span.SetStatus(codes.Error, "ingestion failed")
		a.logger.WarnContext(ctx, "ingestion failed, snapshot discarded", "file", name, "error", err)
		a.notify()
		return nil, false, err
	}

	id := uuid.NewString()
	ds.Source.UploadID = id
	ds.Source.ContentHash = hash

	summary := derive.ReportWith(ds, a.reportOpts)
	snap := &Snapshot{
		Dataset:     ds,
		Metrics:     summary.Metrics,
		Summary:     summary,
		Report:      report,
		UploadID:    id,
		ContentHash: hash,
		LoadedAt:    time.Now().UTC(),
	}
	a.current.Store(snap)
	a.uploads.Add(1)

	elapsed := time.Since(start)
	a.observeUpload("parsed", elapsed)
	a.observeSheets(report)
	a.setLoaded(true)
	span.SetAttributes(
		attribute.String("upload.id", id),
		attribute.Int("metrics.total_orders", summary.Metrics.TotalOrders),
	)
	a.logger.InfoContext(ctx, "snapshot published",
		"file", name,
		"upload_id", id,
		"orders", summary.Metrics.TotalOrders,
		"volume", summary.Metrics.TotalVolume,
		"duration", elapsed)
	a.notify()
	return snap, false, nil
}

// LoadFromFile ingests a workbook from disk, used for startup preload.
func (a *Analytics) LoadFromFile(ctx context.Context, path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	snap, _, err := a.Ingest(ctx, f, filepath.Base(path))
	return snap, err
}

// Current returns the published snapshot or nil.
func (a *Analytics) Current() *Snapshot {
	return a.current.Load()
}

func (a *Analytics) Metrics() (models.DerivedMetrics, error) {
	snap := a.current.Load()
	if snap == nil {
		return models.DerivedMetrics{}, ErrNoData
	}
	return snap.Metrics, nil
}

func (a *Analytics) Summary() (models.Summary, error) {
	snap := a.current.Load()
	if snap == nil {
		return models.Summary{}, ErrNoData
	}
	return snap.Summary, nil
}

// Subscribe returns a channel signalled after every snapshot change and a
// function that releases it. Signals coalesce; readers should re-read
// Current rather than count them.
func (a *Analytics) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	a.subsMu.Lock()
	a.subs[ch] = struct{}{}
	a.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.subsMu.Lock()
			delete(a.subs, ch)
			a.subsMu.Unlock()
		})
	}
}

func (a *Analytics) notify() {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()
	for ch := range a.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (a *Analytics) Stats() map[string]any {
	a.subsMu.Lock()
	subscribers := len(a.subs)
	a.subsMu.Unlock()

	stats := map[string]any{
		"loaded":      false,
		"uploads":     a.uploads.Load(),
		"cache_hits":  a.cacheHits.Load(),
		"failures":    a.failures.Load(),
		"subscribers": subscribers,
	}
	snap := a.current.Load()
	if snap == nil {
		return stats
	}

	stats["loaded"] = true
	stats["upload_id"] = snap.UploadID
	stats["file_name"] = snap.Dataset.Source.FileName
	stats["size_bytes"] = snap.Dataset.Source.SizeBytes
	stats["content_hash"] = snap.ContentHash
	stats["loaded_at"] = snap.LoadedAt
	if snap.Report != nil {
		stats["format"] = snap.Report.Format
		stats["sheets_parsed"] = snap.Report.ParsedSheets
		stats["sheets_missing"] = snap.Report.MissingSheets
		stats["sheets_failed"] = snap.Report.FailedSheets
		stats["rows_kept"] = snap.Report.RowsKept
		stats["rows_dropped"] = snap.Report.RowsDropped
		stats["parse_duration"] = snap.Report.Duration.String()
	}
	return stats
}

func (a *Analytics) observeUpload(result string, d time.Duration) {
	if a.metrics != nil {
		a.metrics.ObserveUpload(result, d)
	}
}

func (a *Analytics) observeSheets(report *ingest.Report) {
	if a.metrics == nil || report == nil {
		return
	}
	for _, s := range report.Sheets {
		a.metrics.ObserveSheet(s.Sheet, string(s.Status))
	}
}

func (a *Analytics) setLoaded(loaded bool) {
	if a.metrics != nil {
		a.metrics.SetSnapshotLoaded(loaded)
	}
}
