package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pokt-network/poktroll/pkg/polylog"
	"github.com/pokt-network/poktroll/pkg/polylog/polyzero"

	configpkg "github.com/rankgate/rankgate/config"
	"github.com/rankgate/rankgate/gateway"
	"github.com/rankgate/rankgate/health"
	"github.com/rankgate/rankgate/metrics"
	"github.com/rankgate/rankgate/persona"
	"github.com/rankgate/rankgate/request"
	"github.com/rankgate/rankgate/router"
)

// Version information injected at build time via ldflags
var (
	Version   string
	Commit    string
	BuildDate string
)

// defaultConfigPath will be appended to the location of
// the executable to get the full path to the config file.
const defaultConfigPath = "config/rankgate.yaml"

func main() {
	log.Printf(`{"level":"info","message":"rankgate starting..."}`)

	// Get the config path
	configPath, err := getConfigPath(defaultConfigPath)
	if err != nil {
		log.Fatalf(`{"level":"fatal","error":"%v","message":"failed to get config path"}`, err)
	}

	// Load the config
	config, err := loadConfig(configPath)
	if err != nil {
		log.Printf(`{"level":"info", "error": "%v", "message": "failed to load config from filepath %v. trying RANKGATE_CONFIG environment variable..."}`, err, configPath)
		conf, err := configpkg.LoadFromEnv()
		if err != nil {
			log.Fatalf(`{"level":"fatal","error":"%v","message":"failed to load config from environment variable and filepath"}`, err)
		}
		config = conf
	}

	// Initialize the logger
	loggerOpts := []polylog.LoggerOption{
		polyzero.WithLevel(polyzero.ParseLevel(config.Logger.Level)),
	}
	logger := polyzero.NewLogger(loggerOpts...)

	logger.Info().Msgf("Starting rankgate using config file: %s", configPath)

	// Context for background services (pprof, transport) that is canceled
	// during shutdown.
	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	defer backgroundCancel()

	// Setup the persona name cache backend.
	nameStore, err := buildNameStore(backgroundCtx, logger, config.NameCache)
	if err != nil {
		log.Fatalf(`{"level":"fatal","error":"%v","message":"failed to set up name cache"}`, err)
	}
	defer nameStore.Close()

	// Setup the transport and the correlation state it feeds.
	source := buildTransport(logger, config)
	registries := gateway.NewRegistries()
	source.Subscribe(gateway.NewCallbackRouter(logger, registries, nameStore))

	resolver := persona.NewResolver(logger, source, nameStore, registries.Identities)

	// Setup the query coordinators.
	leaderboards := gateway.NewLeaderboardService(logger, source, registries, resolver, nameStore, gateway.LeaderboardServiceConfig{
		AppID:       config.App.AppID,
		StepTimeout: config.Query.StepTimeout,
		NameWait:    config.Query.LeaderboardNameWait,
	})
	lobbies := gateway.NewLobbyService(logger, source, registries, resolver, nameStore, gateway.LobbyServiceConfig{
		AppID:           config.App.AppID,
		StepTimeout:     config.Query.StepTimeout,
		NameWait:        config.Query.LobbyNameWait,
		OwnerNameSource: gateway.OwnerNameSource(config.Query.LobbyOwnerNameSource),
		FetchWorkers:    config.Query.LobbyFetchWorkers,
	})
	defer lobbies.Close()

	// Setup the metrics and pprof servers.
	metrics.ServeMetrics(logger, config.Metrics.PrometheusAddr)
	metrics.ServePprof(backgroundCtx, logger, config.Metrics.PprofAddr)

	// Until all components are ready, the /healthz endpoint returns 503.
	checker := health.NewChecker(health.CheckFunc{
		CheckName: "transport",
		Fn:        source.SessionReady,
	})

	filterParser := &request.FilterParser{
		Logger:     logger,
		Predefined: config.PredefinedFilters,
	}

	apiRouter := router.NewRouter(
		logger,
		config.Router,
		leaderboards,
		lobbies,
		filterParser,
		config.App.LeaderboardName,
		checker,
	)

	// -------------------- Log Startup Summary --------------------
	versionInfo := "dev"
	if Version != "" {
		versionInfo = Version
		if Commit != "" {
			versionInfo += " (" + Commit[:min(7, len(Commit))] + ")"
		}
	}

	logger.Info().
		Str("version", versionInfo).
		Uint64("app_id", uint64(config.App.AppID)).
		Str("leaderboard", config.App.LeaderboardName).
		Bool("dev_mode", config.DevMode).
		Str("name_cache", config.NameCache.Backend).
		Msg("rankgate initialized")

	logger.Info().
		Str("leaderboard", fmt.Sprintf("http://localhost:%d/GetLeaderboard", config.Router.Port)).
		Str("lobbies", fmt.Sprintf("http://localhost:%d/GetLobbies", config.Router.Port)).
		Str("health", fmt.Sprintf("http://localhost:%d/healthz", config.Router.Port)).
		Str("metrics", fmt.Sprintf("http://%s/metrics", config.Metrics.PrometheusAddr)).
		Msg("Available endpoints")

	// -------------------- Serve until signaled --------------------
	serverCtx, serverCancel := context.WithCancel(backgroundCtx)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- apiRouter.Start(serverCtx)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info().Msg("Shutting down rankgate...")
		serverCancel()
		if err := <-serverErr; err != nil {
			logger.Error().Err(err).Msg("HTTP server exited with error")
		}
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("HTTP server terminated unexpectedly")
		}
	}

	backgroundCancel()
	logger.Info().Msg("rankgate exited properly")
}

/* -------------------- Init Helpers -------------------- */

// loadConfig loads a YAML config, or a legacy settings.json when pointed at
// one.
func loadConfig(path string) (configpkg.Config, error) {
	if strings.HasSuffix(path, ".json") {
		return configpkg.LoadLegacySettings(path)
	}
	return configpkg.LoadFromYAML(path)
}

// getConfigPath returns the full path to the config file relative to the executable.
//
// Priority for determining config path:
// - If `-config` flag is set, use its value
// - Otherwise, use defaultConfigPath relative to executable directory
func getConfigPath(defaultConfigPath string) (string, error) {
	var configPath string

	// Check for -config flag override
	flag.StringVar(&configPath, "config", "", "override the default config path")
	flag.Parse()
	if configPath != "" {
		return configPath, nil
	}

	// Get executable directory for default path
	exeDir, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	configPath = filepath.Join(filepath.Dir(exeDir), defaultConfigPath)

	return configPath, nil
}
