package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/odds-sync/internal/platform/logging"
	"github.com/riskibarqy/odds-sync/internal/usecase"
)

const defaultSyncDays = 7

// MatchSyncer is the sync surface exposed over HTTP.
type MatchSyncer interface {
	SyncLeague(ctx context.Context, leagueKey string, daysAhead int) (usecase.LeagueSyncResult, error)
	SyncLeagueWindow(ctx context.Context, leagueKey string, from, to time.Time) (usecase.LeagueSyncResult, error)
	SyncAllConfiguredLeagues(ctx context.Context, daysAhead int) (usecase.BatchSyncResult, error)
	ListProviderSports(ctx context.Context, all bool) ([]usecase.ProviderSport, error)
}

type Handler struct {
	sync      MatchSyncer
	logger    *logging.Logger
	validator *validator.Validate
}

func NewHandler(sync MatchSyncer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		sync:      sync,
		logger:    logger,
		validator: validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
