package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/plugindex/plugindex/pkg/fetch"
	"github.com/plugindex/plugindex/pkg/registry"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr            string        // listen address
	refreshInterval time.Duration // background refresh interval (0 = disabled)
}

// newServeCmd creates the serve command exposing the cached registry view
// over HTTP. A single long-lived service backs all requests, so the caches
// actually pay off across calls.
func newServeCmd(configFile *string) *cobra.Command {
	opts := serveOpts{addr: ":8080"}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cached registry view over HTTP",
		Long: `Serve the cached registry view over HTTP.

Endpoints:
  GET  /healthz                  liveness probe
  GET  /plugins                  registry listing (?since=YYYY-MM-DD, ?refresh=true)
  GET  /plugins/{id}             single plugin
  GET  /plugins/{id}/release     latest release info for a plugin
  GET  /stats                    download statistics
  POST /cache/clear              drop all cached data
  PUT  /cache/window             set the freshness window ({"minutes": N})`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, *configFile, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().DurationVar(&opts.refreshInterval, "refresh-interval", 0, "background cache refresh interval (0 = disabled)")

	return cmd
}

func runServe(cmd *cobra.Command, configFile string, opts serveOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	svc, err := newService(cmd, configFile)
	if err != nil {
		return err
	}

	if opts.refreshInterval > 0 {
		svc.StartAutoRefresh(ctx, opts.refreshInterval)
		logger.Infof("Background refresh every %s", opts.refreshInterval)
	}

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           newRouter(svc, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", opts.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// apiServer wires the registry service into HTTP handlers.
type apiServer struct {
	svc    *registry.Service
	logger interface{ Warnf(string, ...any) }
}

// newRouter builds the chi router for the serve command.
func newRouter(svc *registry.Service, logger interface{ Warnf(string, ...any) }) http.Handler {
	api := &apiServer{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", api.handleHealth)
	r.Get("/plugins", api.handlePlugins)
	r.Get("/plugins/{id}", api.handlePlugin)
	r.Get("/plugins/{id}/release", api.handleRelease)
	r.Get("/stats", api.handleStats)
	r.Post("/cache/clear", api.handleCacheClear)
	r.Put("/cache/window", api.handleCacheWindow)

	return r
}

func (a *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *apiServer) handlePlugins(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "true"

	plugins, err := a.svc.FetchRegistry(r.Context(), force)
	if err != nil {
		a.writeError(w, err)
		return
	}

	if since := r.URL.Query().Get("since"); since != "" {
		cutoff, err := time.Parse("2006-01-02", since)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid since date (expected YYYY-MM-DD)"})
			return
		}
		plugins, err = a.svc.RunDateFilter(r.Context(), plugins, cutoff)
		if err != nil {
			a.writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, plugins)
}

func (a *apiServer) handlePlugin(w http.ResponseWriter, r *http.Request) {
	plugin, err := a.svc.FindPlugin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plugin)
}

func (a *apiServer) handleRelease(w http.ResponseWriter, r *http.Request) {
	plugin, err := a.svc.FindPlugin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, err)
		return
	}

	force := r.URL.Query().Get("refresh") == "true"
	release, err := a.svc.GetReleaseInfo(r.Context(), plugin, force)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if release == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no release information"})
		return
	}
	writeJSON(w, http.StatusOK, release)
}

func (a *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "true"
	stats, err := a.svc.FetchStatistics(r.Context(), force)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *apiServer) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	a.svc.ClearAllCaches()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (a *apiServer) handleCacheWindow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Minutes int `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Minutes < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "expected {\"minutes\": N} with N >= 0"})
		return
	}

	a.svc.SetFreshnessWindow(time.Duration(body.Minutes) * time.Minute)
	writeJSON(w, http.StatusOK, map[string]string{
		"window": a.svc.FreshnessWindow().String(),
	})
}

// writeError maps service errors to HTTP status codes.
func (a *apiServer) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fetch.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case fetch.IsRateLimited(err):
		a.logger.Warnf("upstream rate limit: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "upstream rate limit reached and no cached data available"})
	default:
		a.logger.Warnf("request failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
