package stats

import (
	"context"
	"net/http"
	"time"

	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type statsProvider interface {
	GetFitnessStats(ctx context.Context, now time.Time) (*FitnessStats, error)
}

type Handler struct {
	provider statsProvider
	now      func() time.Time
}

func NewHandler(provider statsProvider) *Handler {
	return &Handler{
		provider: provider,
		now:      time.Now,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/fitness/stats", handler.HandleGetStats).Methods("GET", "OPTIONS").Name("fitness-stats")
}

func (handler *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.get")
	defer span.End()

	stats, err := handler.provider.GetFitnessStats(ctx, handler.now())
	if err != nil {
		log.Errorf("get fitness stats: %s", err)
		http.Error(w, "failed to get fitness stats", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, stats, http.StatusOK)
}
