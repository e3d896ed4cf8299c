package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/warmup-engine/internal/domain"
	"github.com/ignite/warmup-engine/internal/pkg/httputil"
	"github.com/ignite/warmup-engine/internal/service/deliverability"
)

const maxIngestEvents = 5000

// AnalyticsService builds deliverability reports.
type AnalyticsService interface {
	Report(ctx context.Context, accountID string) (*domain.AnalyticsReport, error)
	Build(events []domain.DeliveryEvent, totals domain.AggregateTotals) (*domain.AnalyticsReport, error)
	Invalidate(ctx context.Context, accountID string)
}

// DeliveryStore persists what the mail transport reports.
type DeliveryStore interface {
	RecordEvents(ctx context.Context, accountID string, events []domain.DeliveryEvent) error
	UpsertTotals(ctx context.Context, accountID string, totals domain.AggregateTotals) error
}

// AnalyticsHandlers serves the deliverability dashboard and the ingest
// endpoints the mail transport pushes to.
type AnalyticsHandlers struct {
	svc   AnalyticsService
	store DeliveryStore
}

// NewAnalyticsHandlers creates the analytics handlers.
func NewAnalyticsHandlers(svc AnalyticsService, store DeliveryStore) *AnalyticsHandlers {
	return &AnalyticsHandlers{svc: svc, store: store}
}

// PreviewRequest is a snapshot of events and/or totals to aggregate
// without storing anything.
type PreviewRequest struct {
	Events []domain.DeliveryEvent `json:"events"`
	Totals domain.AggregateTotals `json:"totals"`
}

// IngestRequest is a batch of delivery events for one account.
type IngestRequest struct {
	Events []domain.DeliveryEvent `json:"events"`
}

// RegisterRoutes registers analytics routes on an /api/warmup router.
func (h *AnalyticsHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/accounts/{accountID}/analytics", h.HandleReport)
	r.Post("/accounts/{accountID}/events", h.HandleIngestEvents)
	r.Put("/accounts/{accountID}/totals", h.HandlePutTotals)
	r.Post("/analytics/preview", h.HandlePreview)
}

// HandleReport returns the 7-day series and breakdown for an account.
//
//	GET /api/warmup/accounts/{accountID}/analytics
func (h *AnalyticsHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountParam(w, r)
	if !ok {
		return
	}
	report, err := h.svc.Report(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, report)
}

// HandlePreview aggregates the posted snapshot.
//
//	POST /api/warmup/analytics/preview
func (h *AnalyticsHandlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20)
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.Events) > maxIngestEvents {
		httputil.BadRequest(w, "too many events")
		return
	}
	report, err := h.svc.Build(req.Events, req.Totals)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, report)
}

// HandleIngestEvents stores a batch of delivery events.
//
//	POST /api/warmup/accounts/{accountID}/events
func (h *AnalyticsHandlers) HandleIngestEvents(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountParam(w, r)
	if !ok {
		return
	}
	var req IngestRequest
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20)
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.Events) > maxIngestEvents {
		httputil.BadRequest(w, "too many events")
		return
	}

	if err := h.store.RecordEvents(r.Context(), accountID, req.Events); err != nil {
		writeServiceError(w, err)
		return
	}
	h.svc.Invalidate(r.Context(), accountID)
	httputil.JSON(w, http.StatusAccepted, map[string]int{"accepted": len(req.Events)})
}

// HandlePutTotals replaces the aggregate counters for an account.
//
//	PUT /api/warmup/accounts/{accountID}/totals
func (h *AnalyticsHandlers) HandlePutTotals(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountParam(w, r)
	if !ok {
		return
	}
	var totals domain.AggregateTotals
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if !httputil.Decode(w, r, &totals) {
		return
	}
	if err := deliverability.CheckTotals(totals); err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.store.UpsertTotals(r.Context(), accountID, totals); err != nil {
		writeServiceError(w, err)
		return
	}
	h.svc.Invalidate(r.Context(), accountID)
	httputil.OK(w, totals)
}
