package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/parking-zone-sync/internal/adapter/feed"
	"github.com/couchcryptid/parking-zone-sync/internal/domain"
	"github.com/couchcryptid/parking-zone-sync/internal/heatmap"
	"github.com/couchcryptid/parking-zone-sync/internal/refresh"
	"github.com/couchcryptid/parking-zone-sync/internal/store"
)

// ZoneReader exposes the current zone snapshot.
type ZoneReader interface {
	Current() *store.Snapshot
}

// Scheduler is the refresh control surface the API needs.
type Scheduler interface {
	sharedobs.ReadinessChecker
	Refresh(ctx context.Context) error
	Status() refresh.Status
}

// ZoneAdmin forwards zone edits to the feed.
type ZoneAdmin interface {
	Create(ctx context.Context, item domain.FeedItem) error
	Update(ctx context.Context, address string, item domain.FeedItem) error
	Delete(ctx context.Context, address string) error
}

// Options tune the API.
type Options struct {
	GeohashPrecision int             // default cell precision for /api/heatmap/cells
	Clock            clockwork.Clock // supplies the default heatmap hour
	RefreshTimeout   time.Duration   // bound on POST /api/refresh and admin edits
	Admin            ZoneAdmin       // nil leaves the admin routes unmounted
}

// Server exposes health, readiness, metrics, and the zone read API.
type Server struct {
	httpServer *http.Server
	zones      ZoneReader
	scheduler  Scheduler
	profiles   *heatmap.Profiles
	opts       Options
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the health, metrics, and /api routes.
func NewServer(addr string, zones ZoneReader, scheduler Scheduler, profiles *heatmap.Profiles, opts Options, logger *slog.Logger) *Server {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.GeohashPrecision <= 0 {
		opts.GeohashPrecision = 6
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 30 * time.Second
	}

	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: opts.RefreshTimeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		zones:     zones,
		scheduler: scheduler,
		profiles:  profiles,
		opts:      opts,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(scheduler))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/zones", s.handleZones)
	mux.HandleFunc("GET /api/zones/summary", s.handleSummary)
	mux.HandleFunc("GET /api/zones/best", s.handleBest)
	mux.HandleFunc("GET /api/zones/{id}", s.handleZone)
	mux.HandleFunc("GET /api/zones/{id}/profile", s.handleProfile)
	mux.HandleFunc("GET /api/heatmap", s.handleHeatmap)
	mux.HandleFunc("GET /api/heatmap/cells", s.handleHeatmapCells)
	mux.HandleFunc("GET /api/heatmap/geojson", s.handleHeatmapGeoJSON)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	if opts.Admin != nil {
		mux.HandleFunc("POST /api/admin/zones", s.handleCreate)
		mux.HandleFunc("PUT /api/admin/zones/{address}", s.handleUpdate)
		mux.HandleFunc("DELETE /api/admin/zones/{address}", s.handleDelete)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// zoneView decorates a record with its display attributes.
type zoneView struct {
	domain.ZoneRecord
	Color string  `json:"color"`
	Label string  `json:"label"`
	Ratio float64 `json:"ratio"`
}

func viewOf(z domain.ZoneRecord) zoneView {
	return zoneView{ZoneRecord: z, Color: z.Band.Color(), Label: z.Band.Label(), Ratio: z.Ratio()}
}

func viewsOf(zones []domain.ZoneRecord) []zoneView {
	out := make([]zoneView, len(zones))
	for i, z := range zones {
		out[i] = viewOf(z)
	}
	return out
}

type zonesResponse struct {
	RefreshedAt *time.Time `json:"refreshed_at"`
	Generation  uint64     `json:"generation"`
	Count       int        `json:"count"`
	Zones       []zoneView `json:"zones"`
}

func (s *Server) handleZones(w http.ResponseWriter, _ *http.Request) {
	snap := s.zones.Current()
	resp := zonesResponse{
		Generation: snap.Generation(),
		Count:      snap.Len(),
		Zones:      viewsOf(snap.List()),
	}
	if at := snap.RefreshedAt(); !at.IsZero() {
		resp.RefreshedAt = &at
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	z, ok := s.zones.Current().Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "zone_not_found", "zone not found")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, viewOf(z))
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, domain.Summarize(s.zones.Current().List()))
}

func (s *Server) handleBest(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}
	sharedobs.WriteJSON(w, http.StatusOK, viewsOf(domain.BestAvailable(s.zones.Current().List(), limit)))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	z, ok := s.zones.Current().Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "zone_not_found", "zone not found")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.profiles.For(z))
}

func (s *Server) frame(w http.ResponseWriter, r *http.Request) (heatmap.Frame, bool) {
	hour := s.opts.Clock.Now().Hour()
	if v := r.URL.Query().Get("hour"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_hour", heatmap.ErrInvalidHour.Error())
			return heatmap.Frame{}, false
		}
		hour = n
	}
	frame, err := heatmap.BuildFrame(s.zones.Current().List(), s.profiles, hour)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_hour", err.Error())
		return heatmap.Frame{}, false
	}
	return frame, true
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	frame, ok := s.frame(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, frame)
}

func (s *Server) handleHeatmapCells(w http.ResponseWriter, r *http.Request) {
	precision := s.opts.GeohashPrecision
	if v := r.URL.Query().Get("precision"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			writeError(w, http.StatusBadRequest, "invalid_precision", "precision must be between 1 and 12")
			return
		}
		precision = n
	}
	frame, ok := s.frame(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"hour":      frame.Hour,
		"precision": precision,
		"cells":     heatmap.Cells(frame, precision),
	})
}

func (s *Server) handleHeatmapGeoJSON(w http.ResponseWriter, r *http.Request) {
	frame, ok := s.frame(w, r)
	if !ok {
		return
	}
	data, err := heatmap.FeatureCollection(frame).MarshalJSON()
	if err != nil {
		s.logger.Error("marshal geojson", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "could not render geojson")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RefreshTimeout)
	defer cancel()

	err := s.scheduler.Refresh(ctx)
	switch {
	case err == nil:
		sharedobs.WriteJSON(w, http.StatusOK, s.scheduler.Status())
	case errors.Is(err, domain.ErrFeedUnavailable):
		writeError(w, http.StatusBadGateway, "feed_unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "refresh_timeout", "refresh did not finish in time")
	default:
		s.logger.Error("manual refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, "refresh_failed", err.Error())
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.scheduler.Status())
}

const maxAdminBody = 64 << 10

func decodeItem(w http.ResponseWriter, r *http.Request) (domain.FeedItem, error) {
	var item domain.FeedItem
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAdminBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&item); err != nil {
		return domain.FeedItem{}, err
	}
	if item.NumberOfSpots < 0 {
		return domain.FeedItem{}, errors.New("numberOfSpots must not be negative")
	}
	return item, nil
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	item, err := decodeItem(w, r)
	if err == nil && item.Address == "" {
		err = errors.New("address is required")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	s.mutate(w, r, "create", func(ctx context.Context) error {
		return s.opts.Admin.Create(ctx, item)
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	item, err := decodeItem(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if item.Address == "" {
		item.Address = address
	}
	s.mutate(w, r, "update", func(ctx context.Context) error {
		return s.opts.Admin.Update(ctx, address, item)
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	s.mutate(w, r, "delete", func(ctx context.Context) error {
		return s.opts.Admin.Delete(ctx, address)
	})
}

func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RefreshTimeout)
	defer cancel()

	err := fn(ctx)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, feed.ErrRefreshAfterMutation):
		// The edit landed; the next scheduled cycle will pick it up.
		s.logger.Warn("refresh after zone edit failed", "op", op, "error", err)
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, feed.ErrAdminRejected):
		writeError(w, http.StatusUnprocessableEntity, "mutation_rejected", err.Error())
	case errors.Is(err, domain.ErrFeedUnavailable):
		writeError(w, http.StatusBadGateway, "feed_unavailable", err.Error())
	default:
		s.logger.Error("zone edit failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "mutation_failed", err.Error())
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	sharedobs.WriteJSON(w, status, errorResponse{Error: msg, Code: code})
}
