package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerInternalSyncRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/sync/leagues/{leagueKey}", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.SyncLeague)))
	mux.Handle("POST /v1/internal/sync/leagues/{leagueKey}/range", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.SyncLeagueRange)))
	mux.Handle("POST /v1/internal/sync/all", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.SyncAllLeagues)))
	mux.Handle("GET /v1/internal/provider/sports", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ListProviderSports)))
}
