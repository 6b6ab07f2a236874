package feedmock

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/parking-zone-sync/internal/domain"
)

// NewRouter serves the feed contract over reg:
//
//	GET    /api/parking
//	POST   /api/parking
//	PUT    /api/parking/{address}
//	DELETE /api/parking/{address}
func NewRouter(reg *Registry, logger *slog.Logger) http.Handler {
	h := &handler{reg: reg, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/api/parking", h.list).Methods(http.MethodGet)
	r.HandleFunc("/api/parking", h.create).Methods(http.MethodPost)
	r.HandleFunc("/api/parking/{address}", h.update).Methods(http.MethodPut)
	r.HandleFunc("/api/parking/{address}", h.remove).Methods(http.MethodDelete)
	r.HandleFunc("/healthz", sharedobs.LivenessHandler()).Methods(http.MethodGet)
	r.Use(h.logRequests)
	return r
}

type handler struct {
	reg    *Registry
	logger *slog.Logger
}

func (h *handler) list(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, h.reg.List())
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	var item domain.FeedItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil || item.Address == "" {
		http.Error(w, "invalid zone", http.StatusBadRequest)
		return
	}
	if err := h.reg.Create(item); err != nil {
		writeErr(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusCreated, item)
}

func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	var item domain.FeedItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, "invalid zone", http.StatusBadRequest)
		return
	}
	if err := h.reg.Update(address, item); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.reg.Delete(mux.Vars(r)["address"]); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrExists):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RunDrift perturbs availability every interval until ctx is done.
func RunDrift(ctx context.Context, clock clockwork.Clock, gen *Generator, reg *Registry, interval time.Duration, step int) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			gen.Drift(reg, step)
		}
	}
}
