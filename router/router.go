// Package router exposes the query services over local HTTP: the XML query
// endpoints clients scrape plus the operational readiness probe.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pokt-network/poktroll/pkg/polylog"

	"github.com/rankgate/rankgate/gateway"
	"github.com/rankgate/rankgate/health"
	"github.com/rankgate/rankgate/metrics"
	"github.com/rankgate/rankgate/request"
)

/* --------------------------------- Router Config -------------------------------- */

const (
	defaultPort = 12345

	defaultReadTimeout = 10 * time.Second
	// defaultWriteTimeout must exceed the worst-case query: two protocol
	// steps plus the name resolution wait.
	defaultWriteTimeout = 60 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	endpointLeaderboard = "get_leaderboard"
	endpointLobbies     = "get_lobbies"
	endpointHealthz     = "healthz"
	endpointUnknown     = "unknown"
)

// Config is the HTTP server configuration for the router.
type Config struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
	IdleTimeout  time.Duration `yaml:"idle_timeout,omitempty"`
}

// HydrateDefaults applies default values to unset Config fields.
func (c *Config) HydrateDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
}

/* --------------------------------- Router -------------------------------- */

// Router serves the XML query API. Responses are always text/xml: snapshots
// on success, an <error> document otherwise.
type Router struct {
	logger polylog.Logger
	config Config

	leaderboards *gateway.LeaderboardService
	lobbies      *gateway.LobbyService
	filters      *request.FilterParser

	// defaultBoard is queried when the request names no leaderboard.
	defaultBoard string

	checker *health.Checker
}

func NewRouter(
	logger polylog.Logger,
	config Config,
	leaderboards *gateway.LeaderboardService,
	lobbies *gateway.LobbyService,
	filters *request.FilterParser,
	defaultBoard string,
	checker *health.Checker,
) *Router {
	config.HydrateDefaults()
	return &Router{
		logger:       logger.With("component", "router"),
		config:       config,
		leaderboards: leaderboards,
		lobbies:      lobbies,
		filters:      filters,
		defaultBoard: defaultBoard,
		checker:      checker,
	}
}

// Handler returns the route table. Exposed for tests.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/GetLeaderboard", r.handleGetLeaderboard)
	mux.HandleFunc("/GetLobbies", r.handleGetLobbies)
	mux.HandleFunc("/healthz", r.handleHealthz)
	mux.HandleFunc("/", r.handleUnknown)
	return mux
}

// Start serves HTTP until ctx is canceled, then shuts down gracefully.
func (r *Router) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", r.config.Port),
		Handler:      r.Handler(),
		ReadTimeout:  r.config.ReadTimeout,
		WriteTimeout: r.config.WriteTimeout,
		IdleTimeout:  r.config.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn().Err(err).Msg("HTTP server shutdown failed")
		}
	}()

	r.logger.Info().Int("port", r.config.Port).Msg("Starting HTTP server")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server terminated: %w", err)
	}
	return nil
}

/* --------------------------------- Query Endpoints -------------------------------- */

func (r *Router) handleGetLeaderboard(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	query := req.URL.Query()

	name := query.Get("name")
	if name == "" {
		name = r.defaultBoard
	}
	count := request.ParseCount(query.Get("count"))

	snapshot, err := r.leaderboards.Fetch(req.Context(), name, count)
	if err != nil {
		r.logger.Error().Err(err).Str("leaderboard", name).Msg("Leaderboard query failed")
		r.writeXML(w, endpointLeaderboard, http.StatusInternalServerError, renderError(err.Error()), start)
		return
	}

	payload, err := renderLeaderboard(snapshot)
	if err != nil {
		r.logger.Error().Err(err).Msg("Leaderboard serialization failed")
		r.writeXML(w, endpointLeaderboard, http.StatusInternalServerError, renderError(err.Error()), start)
		return
	}
	r.writeXML(w, endpointLeaderboard, http.StatusOK, payload, start)
}

func (r *Router) handleGetLobbies(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	query := req.URL.Query()

	filterSets := r.filters.Parse(query.Get("filters"))
	count := request.ParseCount(query.Get("count"))

	snapshot, err := r.lobbies.List(req.Context(), filterSets, count)
	if err != nil {
		r.logger.Error().Err(err).Msg("Lobby query failed")
		r.writeXML(w, endpointLobbies, http.StatusInternalServerError, renderError(err.Error()), start)
		return
	}

	payload, err := renderLobbies(snapshot)
	if err != nil {
		r.logger.Error().Err(err).Msg("Lobby serialization failed")
		r.writeXML(w, endpointLobbies, http.StatusInternalServerError, renderError(err.Error()), start)
		return
	}
	r.writeXML(w, endpointLobbies, http.StatusOK, payload, start)
}

func (r *Router) handleUnknown(w http.ResponseWriter, req *http.Request) {
	r.writeXML(w, endpointUnknown, http.StatusNotFound, renderError("Unknown Endpoint"), time.Now())
}

func (r *Router) writeXML(w http.ResponseWriter, endpoint string, status int, payload []byte, start time.Time) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		r.logger.Debug().Err(err).Msg("Failed to write response")
	}
	metrics.RecordRequest(endpoint, strconv.Itoa(status), time.Since(start).Seconds())
}

/* --------------------------------- Operational Endpoints -------------------------------- */

// healthzResponse is the JSON response for the readiness probe.
type healthzResponse struct {
	Ready      bool            `json:"ready"`
	Components map[string]bool `json:"components,omitempty"`
}

// handleHealthz reports aggregate readiness: 200 when every registered
// component is ready, 503 otherwise.
func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	ready, components := r.checker.Ready()

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(healthzResponse{Ready: ready, Components: components}); err != nil {
		r.logger.Error().Err(err).Msg("Failed to encode readiness response")
	}
	metrics.RecordRequest(endpointHealthz, strconv.Itoa(status), 0)
}
