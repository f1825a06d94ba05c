package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/odds-sync/internal/usecase"
)

const dateOnlyLayout = "2006-01-02"

type syncLeagueRequest struct {
	LeagueKey string `validate:"required,max=100"`
	Days      int    `validate:"min=1,max=30"`
}

type syncLeagueRangeRequest struct {
	LeagueKey string    `validate:"required,max=100"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtfield=StartDate"`
}

type syncAllRequest struct {
	Days int `validate:"min=1,max=30"`
}

func (h *Handler) SyncLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SyncLeague")
	defer span.End()

	days, err := parseDays(r.URL.Query().Get("days"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	req := syncLeagueRequest{
		LeagueKey: strings.TrimSpace(r.PathValue("leagueKey")),
		Days:      days,
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.sync.SyncLeague(ctx, req.LeagueKey, req.Days)
	if err != nil {
		h.logger.WarnContext(ctx, "sync league failed", "league_key", req.LeagueKey, "days", req.Days, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) SyncLeagueRange(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SyncLeagueRange")
	defer span.End()

	query := r.URL.Query()
	start, err := parseBoundary("startDate", query.Get("startDate"), false)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	end, err := parseBoundary("endDate", query.Get("endDate"), true)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	req := syncLeagueRangeRequest{
		LeagueKey: strings.TrimSpace(r.PathValue("leagueKey")),
		StartDate: start,
		EndDate:   end,
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.sync.SyncLeagueWindow(ctx, req.LeagueKey, req.StartDate, req.EndDate)
	if err != nil {
		h.logger.WarnContext(ctx, "sync league range failed",
			"league_key", req.LeagueKey,
			"start_date", req.StartDate,
			"end_date", req.EndDate,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) SyncAllLeagues(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SyncAllLeagues")
	defer span.End()

	days, err := parseDays(r.URL.Query().Get("days"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	req := syncAllRequest{Days: days}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.sync.SyncAllConfiguredLeagues(ctx, req.Days)
	if err != nil {
		h.logger.WarnContext(ctx, "sync all leagues failed", "days", req.Days, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) ListProviderSports(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListProviderSports")
	defer span.End()

	all := false
	if raw := strings.TrimSpace(r.URL.Query().Get("all")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: all must be a boolean", usecase.ErrInvalidInput))
			return
		}
		all = v
	}

	sports, err := h.sync.ListProviderSports(ctx, all)
	if err != nil {
		h.logger.WarnContext(ctx, "list provider sports failed", "all", all, "error", err)
		writeError(ctx, w, err)
		return
	}
	if sports == nil {
		sports = []usecase.ProviderSport{}
	}

	writeSuccess(ctx, w, http.StatusOK, sports)
}

func parseDays(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultSyncDays, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: days must be an integer", usecase.ErrInvalidInput)
	}
	return v, nil
}

// parseBoundary accepts RFC3339 or YYYY-MM-DD. A date-only end boundary covers the whole day.
func parseBoundary(name, raw string, end bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", usecase.ErrInvalidInput, name)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateOnlyLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339 or YYYY-MM-DD", usecase.ErrInvalidInput, name)
	}
	if end {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}
