package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/warmup-engine/internal/domain"
	"github.com/ignite/warmup-engine/internal/pkg/httputil"
	"github.com/ignite/warmup-engine/internal/service/warmup"
)

const maxAccountIDLen = 255

// WarmupService is what the settings UI and scheduler endpoints need from
// the warmup service.
type WarmupService interface {
	Location() *time.Location
	Get(ctx context.Context, accountID string) (*domain.WarmupConfig, error)
	State(ctx context.Context, accountID string) (domain.RampState, string, error)
	History(ctx context.Context, accountID string, limit int) ([]domain.RampLogEntry, error)
	SaveConfig(ctx context.Context, accountID string, update warmup.ConfigUpdate) (*domain.WarmupConfig, error)
	Tick(ctx context.Context, accountID string, tickAt time.Time) (domain.RampState, error)
	CatchUp(ctx context.Context, accountID string) (int, error)
}

// WarmupHandlers serves warmup settings and ramp endpoints.
type WarmupHandlers struct {
	svc WarmupService
	now func() time.Time
}

// NewWarmupHandlers creates the warmup settings handlers.
func NewWarmupHandlers(svc WarmupService) *WarmupHandlers {
	return &WarmupHandlers{svc: svc, now: time.Now}
}

// ConfigResponse is the settings payload: the stored config plus the
// scheduler's view of it and the combined identifier tag the mail filter
// matches on.
type ConfigResponse struct {
	Config *domain.WarmupConfig `json:"config"`
	State  domain.RampState     `json:"state"`
	Stage  string               `json:"stage"`
	Tag    string               `json:"identifier_tag,omitempty"`
}

// TagResponse is a parsed identifier tag.
type TagResponse struct {
	Tag1  string `json:"tag1"`
	Tag2  string `json:"tag2"`
	Valid bool   `json:"valid"`
}

// RegisterRoutes registers warmup routes on an /api/warmup router.
func (h *WarmupHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/accounts/{accountID}/config", h.HandleGetConfig)
	r.Put("/accounts/{accountID}/config", h.HandleSaveConfig)
	r.Get("/accounts/{accountID}/state", h.HandleGetState)
	r.Get("/accounts/{accountID}/history", h.HandleHistory)
	r.Post("/accounts/{accountID}/tick", h.HandleTick)
	r.Post("/accounts/{accountID}/catch-up", h.HandleCatchUp)
	r.Get("/tag/parse", h.HandleParseTag)
}

// HandleGetConfig returns the stored config for an account.
//
//	GET /api/warmup/accounts/{accountID}/config
func (h *WarmupHandlers) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountParam(w, r)
	if !ok {
		return
	}
	cfg, err := h.svc.Get(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, newConfigResponse(cfg))
}

// HandleSaveConfig validates and stores a (partial) settings update.
//
//	PUT /api/warmup/accounts/{accountID}/config
func (h *WarmupHandlers) HandleSaveConfig(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountParam(w, r)
	if !ok {
		return
	}
	var update warmup.ConfigUpdate
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if !httputil.Decode(w, r, &update) {
		return
	}

	cfg, err := h.svc.SaveConfig(r.Context(), accountID, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, newConfigResponse(cfg))
}

// HandleGetState returns the ramp phase, cap and stage label.
//
//	GET /api/warmup/accounts/{accountID}/state
func (h *WarmupHandlers) HandleGetState(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountParam(w, r)
	if !ok {
		return
	}
	st, stage, err := h.svc.State(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"state": st,
		"stage": stage,
	})
}

// HandleHistory returns recent ramp ticks, newest first.
//
//	GET /api/warmup/accounts/{accountID}/history?limit=30
func (h *WarmupHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountParam(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.svc.History(r.Context(), accountID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.RampLogEntry{}
	}
	httputil.OK(w, map[string]interface{}{
		"account_id": accountID,
		"entries":    entries,
	})
}

// HandleTick applies a single ramp tick for today, or for the day given as
// ?date=YYYY-MM-DD. A day already ticked is a no-op; a day after today is
// rejected.
//
//	POST /api/warmup/accounts/{accountID}/tick
func (h *WarmupHandlers) HandleTick(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountParam(w, r)
	if !ok {
		return
	}

	tickAt := h.now()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.ParseInLocation("2006-01-02", d, h.svc.Location())
		if err != nil {
			httputil.BadRequest(w, "date must be YYYY-MM-DD")
			return
		}
		if parsed.After(warmup.DayStart(tickAt, h.svc.Location())) {
			httputil.BadRequest(w, "date must not be after today")
			return
		}
		tickAt = parsed
	}

	st, err := h.svc.Tick(r.Context(), accountID, tickAt)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, st)
}

// HandleCatchUp applies every tick owed to the account up to today.
//
//	POST /api/warmup/accounts/{accountID}/catch-up
func (h *WarmupHandlers) HandleCatchUp(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountParam(w, r)
	if !ok {
		return
	}
	n, err := h.svc.CatchUp(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	st, stage, err := h.svc.State(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"ticks_applied": n,
		"state":         st,
		"stage":         stage,
	})
}

// HandleParseTag splits a combined identifier tag.
//
//	GET /api/warmup/tag/parse?tag=acme-wu01
func (h *WarmupHandlers) HandleParseTag(w http.ResponseWriter, r *http.Request) {
	tag, ok := domain.ParseIdentifierTag(r.URL.Query().Get("tag"))
	if !ok {
		httputil.BadRequest(w, "tag must contain a '-' separator")
		return
	}
	httputil.OK(w, TagResponse{
		Tag1:  tag.Tag1,
		Tag2:  tag.Tag2,
		Valid: domain.ValidTagSegment(tag.Tag1) && domain.ValidTagSegment(tag.Tag2),
	})
}

func newConfigResponse(cfg *domain.WarmupConfig) ConfigResponse {
	st := warmup.StateFor(*cfg)
	resp := ConfigResponse{Config: cfg, State: st, Stage: warmup.Stage(st, *cfg)}
	if cfg.IdentifierTag != (domain.IdentifierTag{}) {
		resp.Tag = cfg.IdentifierTag.String()
	}
	return resp
}

func accountParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "accountID"))
	if id == "" || len(id) > maxAccountIDLen {
		httputil.BadRequest(w, "invalid account id")
		return "", false
	}
	return id, true
}
