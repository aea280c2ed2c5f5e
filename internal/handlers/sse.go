package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"tms-dashboard/internal/models"
	"tms-dashboard/internal/observability"
	"tms-dashboard/internal/services"
	"tms-dashboard/internal/ui/templates"
)

const maxChartLanes = 20

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
	metrics   *observability.Metrics
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger, metrics *observability.Metrics) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
		metrics:   metrics,
	}
}

// signalsFor returns the client-side state every patch refreshes.
func signalsFor(snap *services.Snapshot) map[string]any {
	if snap == nil {
		return map[string]any{"loaded": false, "uploadId": "", "fileName": ""}
	}
	return map[string]any{
		"loaded":   true,
		"uploadId": snap.UploadID,
		"fileName": snap.Dataset.Source.FileName,
	}
}

// panel renders one fragment, or its empty state when nothing is loaded.
type panel struct {
	id     string
	render func(*services.Snapshot) templ.Component
	chart  func(*services.Snapshot) map[string]any
}

var (
	kpiPanel = panel{
		id: templates.KPIsID,
		render: func(s *services.Snapshot) templ.Component {
			return templates.KPIs(s.Metrics)
		},
		chart: func(s *services.Snapshot) map[string]any {
			return map[string]any{"kpiData": s.Metrics}
		},
	}
	otpPanel = panel{
		id: templates.OTPID,
		render: func(s *services.Snapshot) templ.Component {
			return templates.OTP(s.Metrics, s.Summary.Delays, s.Summary.Timing)
		},
		chart: func(s *services.Snapshot) map[string]any {
			data := map[string]any{}
			if s.Summary.Delays != nil {
				data["delayData"] = s.Summary.Delays.Categories
			}
			return data
		},
	}
	lanesPanel = panel{
		id: templates.LanesID,
		render: func(s *services.Snapshot) templ.Component {
			return templates.Lanes(s.Summary.Lanes)
		},
		chart: func(s *services.Snapshot) map[string]any {
			var top []models.RankedLane
			if s.Summary.Lanes != nil {
				top = s.Summary.Lanes.TopLanes
				if len(top) > maxChartLanes {
					top = top[:maxChartLanes]
				}
			}
			return map[string]any{"laneData": top}
		},
	}
	financialsPanel = panel{
		id: templates.FinancialsID,
		render: func(s *services.Snapshot) templ.Component {
			return templates.Financials(s.Metrics, s.Summary)
		},
		chart: func(s *services.Snapshot) map[string]any {
			return map[string]any{"countryData": s.Summary.CountryFinance}
		},
	}
	allPanels = []panel{kpiPanel, otpPanel, lanesPanel, financialsPanel}
)

// patch sends the signals and fragments for the given panels from one
// snapshot.
func (h *SSEHandlers) patch(r *http.Request, sse *datastar.ServerSentEventGenerator, snap *services.Snapshot, panels ...panel) error {
	signals := signalsFor(snap)
	for _, p := range panels {
		comp := templates.Empty(p.id)
		if snap != nil {
			comp = p.render(snap)
			for k, v := range p.chart(snap) {
				signals[k] = v
			}
		}
		html, err := templates.Render(r.Context(), comp)
		if err != nil {
			return err
		}
		if err := sse.PatchElements(html); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(signals)
	if err != nil {
		return err
	}
	return sse.PatchSignals(payload)
}

func (h *SSEHandlers) serve(w http.ResponseWriter, r *http.Request, panels ...panel) {
	sse := datastar.NewSSE(w, r)
	if err := h.patch(r, sse, h.analytics.Current(), panels...); err != nil {
		h.logger.WarnContext(r.Context(), "sse patch failed", "path", r.URL.Path, "error", err)
	}
}

func (h *SSEHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, kpiPanel)
}

func (h *SSEHandlers) HandleOTP(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, otpPanel)
}

func (h *SSEHandlers) HandleLanes(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, lanesPanel)
}

func (h *SSEHandlers) HandleFinancials(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, financialsPanel)
}

// HandleRefreshAll patches every panel, then keeps the stream open and
// re-patches after each snapshot change until the client goes away.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	changes, unsubscribe := h.analytics.Subscribe()
	defer unsubscribe()

	if h.metrics != nil {
		h.metrics.SSEClientConnected()
		defer h.metrics.SSEClientDisconnected()
	}

	// The stream outlives the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sse := datastar.NewSSE(w, r)
	if err := h.patch(r, sse, h.analytics.Current(), allPanels...); err != nil {
		h.logger.WarnContext(r.Context(), "sse patch failed", "path", r.URL.Path, "error", err)
		return
	}
	if r.URL.Query().Has("once") {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-changes:
			snap := h.analytics.Current()
			if err := h.patch(r, sse, snap, allPanels...); err != nil {
				h.logger.DebugContext(r.Context(), "sse client gone", "error", err)
				return
			}
			h.logger.DebugContext(r.Context(), "snapshot pushed", "loaded", snap != nil)
		}
	}
}
