// -----------------------------------------------------------------------
// Application - Dependency wiring and lifecycle
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/casestrainer/internal/citations"
	"github.com/ternarybob/casestrainer/internal/common"
	"github.com/ternarybob/casestrainer/internal/extractor"
	"github.com/ternarybob/casestrainer/internal/handlers"
	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/logs"
	"github.com/ternarybob/casestrainer/internal/pipeline"
	"github.com/ternarybob/casestrainer/internal/queue"
	"github.com/ternarybob/casestrainer/internal/reports"
	storage "github.com/ternarybob/casestrainer/internal/storage/badger"
	"github.com/ternarybob/casestrainer/internal/verifier"
	"github.com/ternarybob/casestrainer/internal/workers"
)

// App holds all application components and dependencies.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	QueueManager   interfaces.QueueManager
	Pipeline       interfaces.Pipeline
	Extractor      interfaces.DocumentExtractor
	Fetcher        interfaces.DocumentFetcher
	Verifier       interfaces.Verifier
	ReportService  interfaces.ReportService

	Processor   *workers.Processor
	Reaper      *workers.Reaper
	LogConsumer *logs.Consumer

	// HTTP handlers
	WSHandler      *handlers.WebSocketHandler
	AnalyzeHandler *handlers.AnalyzeHandler
	TaskHandler    *handlers.TaskHandler
	ResultHandler  *handlers.ResultHandler
	HealthHandler  *handlers.HealthHandler
}

// New wires the application. Components start in dependency order; Start
// launches the background loops once wiring is complete.
func New(config *common.Config) (*App, error) {
	logger := common.InitLogger(config)

	app := &App{
		Config: config,
		Logger: logger,
	}

	storageManager, err := storage.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	// The websocket hub doubles as the event publisher the workers and the
	// log consumer push into.
	app.WSHandler = handlers.NewWebSocketHandler(logger, &config.WebSocket)

	app.LogConsumer = logs.NewConsumer(storageManager.LogStorage(), app.WSHandler, logger, config.Logging.MinEventLevel)
	if err := app.LogConsumer.Start(); err != nil {
		return nil, fmt.Errorf("failed to start log consumer: %w", err)
	}
	// Route correlated log batches from arbor into the consumer.
	logger.SetChannel("context", app.LogConsumer.GetChannel())

	registry, err := citations.NewRegistry(config.Pipeline.ReporterAliases, config.Verification.JurisdictionMap)
	if err != nil {
		return nil, fmt.Errorf("failed to load reporter registry: %w", err)
	}
	scanner := citations.NewScanner(registry)

	app.Extractor = extractor.NewService(config.Extraction, logger)

	fetcher := verifier.NewFetcher(config.PerCallTimeout(), config.Verification.UserAgent, logger)
	app.Fetcher = fetcher

	var browser *verifier.BrowserFetcher
	if config.Verification.Browser.Enabled {
		waitTime, err := time.ParseDuration(config.Verification.Browser.WaitTime)
		if err != nil {
			waitTime = 3 * time.Second
		}
		browser = verifier.NewBrowserFetcher(config.Verification.UserAgent, waitTime, logger)
		logger.Info().Msg("Headless browser fetching enabled for JS-walled sources")
	}

	verifierService := verifier.NewService(config.Verification, registry, fetcher, browser, logger)
	app.Verifier = verifierService

	app.Pipeline = pipeline.NewService(config, scanner, verifierService, logger)
	app.ReportService = reports.NewService(logger)

	queueManager, err := queue.NewManager(
		storageManager.DB(),
		config.Queue.QueueName,
		config.VisibilityTimeoutDuration(),
		config.Queue.MaxAttempts,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}
	app.QueueManager = queueManager

	app.Processor = workers.NewProcessor(
		queueManager,
		storageManager.TaskStorage(),
		app.WSHandler,
		logger,
		config.Queue.WorkerCount,
		config.PollIntervalDuration(),
		config.HeartbeatInterval(),
		config.VisibilityTimeoutDuration(),
	)
	app.Processor.RegisterWorker(workers.NewAnalysisWorker(
		app.Pipeline,
		storageManager.TaskStorage(),
		storageManager.ResultStorage(),
		app.WSHandler,
		logger,
	))

	app.Reaper = workers.NewReaper(
		storageManager.TaskStorage(),
		storageManager.ResultStorage(),
		logger,
		config.StuckThreshold(),
		config.Queue.MaxAttempts,
		time.Duration(config.Queue.ReaperIntervalSecs)*time.Second,
	)

	app.AnalyzeHandler = handlers.NewAnalyzeHandler(
		config,
		app.Pipeline,
		app.Extractor,
		app.Fetcher,
		storageManager.TaskStorage(),
		storageManager.ResultStorage(),
		queueManager,
		logger,
	)
	app.TaskHandler = handlers.NewTaskHandler(storageManager.TaskStorage(), storageManager.LogStorage(), logger)
	app.ResultHandler = handlers.NewResultHandler(storageManager.ResultStorage(), app.ReportService, logger)
	app.HealthHandler = handlers.NewHealthHandler()

	logger.Info().
		Str("version", common.GetVersion()).
		Int("workers", config.Queue.WorkerCount).
		Msg("Application wired")
	return app, nil
}

// Start launches the worker pool and the reaper.
func (a *App) Start() error {
	a.Processor.Start()
	if err := a.Reaper.Start(); err != nil {
		return fmt.Errorf("failed to start reaper: %w", err)
	}
	return nil
}

// Shutdown stops background work and closes storage. Order matters: the
// pool drains before the queue and store close underneath it.
func (a *App) Shutdown(ctx context.Context) error {
	a.Reaper.Stop()
	a.Processor.Stop()

	if err := a.QueueManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Queue close failed")
	}
	if a.LogConsumer != nil {
		_ = a.LogConsumer.Stop()
	}
	if err := a.StorageManager.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}

	a.Logger.Info().Msg("Application stopped")
	return nil
}
