package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tms-dashboard/internal/errors"
	"tms-dashboard/internal/ingest"
	"tms-dashboard/internal/models"
	"tms-dashboard/internal/observability"
	"tms-dashboard/internal/services"
)

const uploadField = "file"

// Version is reported by /health and set at link time.
var Version = "dev"

type APIHandlers struct {
	analytics      *services.Analytics
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger, maxUploadBytes int64) *APIHandlers {
	return &APIHandlers{
		analytics:      analytics,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

type UploadResponse struct {
	UploadID string                `json:"upload_id"`
	FileName string                `json:"file_name"`
	Cached   bool                  `json:"cached"`
	Metrics  models.DerivedMetrics `json:"metrics"`
	Report   *ingest.Report        `json:"report"`
}

func (h *APIHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())
	if r.ContentLength > h.maxUploadBytes {
		errors.WriteError(w, h.logger, errors.PayloadTooLarge(h.maxUploadBytes), requestID)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		if isTooLarge(err) {
			errors.WriteError(w, h.logger, errors.PayloadTooLarge(h.maxUploadBytes), requestID)
			return
		}
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "multipart field \"file\" is required"), requestID)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		if isTooLarge(err) {
			errors.WriteError(w, h.logger, errors.PayloadTooLarge(h.maxUploadBytes), requestID)
			return
		}
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "cannot read upload"), requestID)
		return
	}

	snap, cached, err := h.analytics.IngestBytes(r.Context(), data, header.Filename)
	if err != nil {
		if errors.Is(err, ingest.ErrIngestion) {
			errors.WriteError(w, h.logger, errors.Ingestion(err), requestID)
			return
		}
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "upload failed"), requestID)
		return
	}

	errors.WriteSuccess(w, UploadResponse{
		UploadID: snap.UploadID,
		FileName: header.Filename,
		Cached:   cached,
		Metrics:  snap.Metrics,
		Report:   snap.Report,
	})
}

// isTooLarge matches the body limit error, which the multipart reader does
// not always wrap.
func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

// snapshot writes NO_DATA and returns nil when nothing is loaded. It also
// answers conditional requests against the upload id.
func (h *APIHandlers) snapshot(w http.ResponseWriter, r *http.Request) *services.Snapshot {
	snap := h.analytics.Current()
	if snap == nil {
		errors.WriteError(w, h.logger, errors.NoData(), observability.GetRequestID(r.Context()))
		return nil
	}

	etag := `"` + snap.UploadID + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}
	return snap
}

func (h *APIHandlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if snap := h.snapshot(w, r); snap != nil {
		errors.WriteSuccess(w, snap.Metrics)
	}
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if snap := h.snapshot(w, r); snap != nil {
		errors.WriteSuccess(w, snap.Summary)
	}
}

type OTPResponse struct {
	TotalOrders   int                    `json:"total_orders"`
	OnTimeOrders  int                    `json:"on_time_orders"`
	LateOrders    int                    `json:"late_orders"`
	OnTimePercent float64                `json:"on_time_percent"`
	Delays        *models.DelayBreakdown `json:"delays,omitempty"`
	Timing        *models.TimingStats    `json:"timing,omitempty"`
}

func (h *APIHandlers) HandleOTP(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w, r)
	if snap == nil {
		return
	}
	m := snap.Metrics
	errors.WriteSuccess(w, OTPResponse{
		TotalOrders:   m.TotalOrders,
		OnTimeOrders:  m.OnTimeOrders,
		LateOrders:    m.LateOrders,
		OnTimePercent: m.OnTimePercent,
		Delays:        snap.Summary.Delays,
		Timing:        snap.Summary.Timing,
	})
}

type VolumeResponse struct {
	TotalVolume int                  `json:"total_volume"`
	Tables      *models.VolumeTables `json:"tables,omitempty"`
	Shares      *models.VolumeShares `json:"shares,omitempty"`
}

func (h *APIHandlers) HandleVolume(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w, r)
	if snap == nil {
		return
	}
	errors.WriteSuccess(w, VolumeResponse{
		TotalVolume: snap.Metrics.TotalVolume,
		Tables:      snap.Dataset.Volumes,
		Shares:      snap.Summary.Volumes,
	})
}

func (h *APIHandlers) HandleLanes(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w, r)
	if snap == nil {
		return
	}
	lanes := snap.Summary.Lanes
	if lanes == nil {
		lanes = &models.LaneSummary{}
	}
	errors.WriteSuccess(w, lanes)
}

type FinancialsResponse struct {
	TotalRevenue      float64                    `json:"total_revenue"`
	TotalCost         float64                    `json:"total_cost"`
	TotalMargin       float64                    `json:"total_margin"`
	MarginPercent     float64                    `json:"margin_percent"`
	BilledRecords     int                        `json:"billed_records"`
	ProfitPerShipment float64                    `json:"profit_per_shipment"`
	Costs             *models.CostBreakdown      `json:"costs,omitempty"`
	Margins           *models.MarginDistribution `json:"margins,omitempty"`
	Countries         []models.CountryFinancial  `json:"countries,omitempty"`
	Accounts          []models.AccountProfit     `json:"accounts,omitempty"`
	LossAccounts      []models.AccountProfit     `json:"loss_accounts,omitempty"`
	Trend             *models.FinancialTrend     `json:"trend,omitempty"`
	Outliers          *models.DiffOutliers       `json:"outliers,omitempty"`
}

func (h *APIHandlers) HandleFinancials(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w, r)
	if snap == nil {
		return
	}
	m, s := snap.Metrics, snap.Summary
	errors.WriteSuccess(w, FinancialsResponse{
		TotalRevenue:      m.TotalRevenue,
		TotalCost:         m.TotalCost,
		TotalMargin:       m.TotalMargin,
		MarginPercent:     m.MarginPercent,
		BilledRecords:     m.BilledRecords,
		ProfitPerShipment: s.ProfitPerShipment,
		Costs:             s.Costs,
		Margins:           s.Margins,
		Countries:         s.CountryFinance,
		Accounts:          s.Accounts,
		LossAccounts:      s.LossAccounts,
		Trend:             s.Trend,
		Outliers:          s.Outliers,
	})
}

// HandleReport returns the ingestion report of the current upload.
func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	if snap := h.snapshot(w, r); snap != nil {
		errors.WriteSuccess(w, snap.Report)
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "empty"
	if h.analytics.Current() != nil {
		status = "loaded"
	}

	errors.WriteSuccess(w, map[string]string{
		"status":    "healthy",
		"dataset":   status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   Version,
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Stats(), map[string]string{
		"Cache-Control": "no-store",
	})
}
