// Package wire provides dependency injection for the rvault application.
// It creates singleton services with lazy initialization.
package wire

import (
	"log"
	"sync"
	"time"

	"github.com/example/rvault/internal/adapters/fetch"
	"github.com/example/rvault/internal/adapters/search"
	"github.com/example/rvault/internal/adapters/sqlite"
	"github.com/example/rvault/internal/app"
	"github.com/example/rvault/internal/config"
	"github.com/example/rvault/internal/core/netguard"
	"github.com/example/rvault/internal/core/trust"
	"github.com/example/rvault/internal/db"
	"github.com/example/rvault/internal/events"
	"github.com/example/rvault/internal/logging"
	"github.com/example/rvault/internal/ports/primary"
)

var (
	cfg              *config.Config
	projectService   primary.ProjectService
	ledgerService    primary.LedgerService
	ingestService    primary.IngestService
	synthesisService primary.SynthesisService
	verifyService    primary.VerifyService
	watchService     primary.WatchService
	watchdogService  primary.WatchdogService
	strategyService  primary.StrategyService
	exportService    primary.ExportService
	publisher        events.Publisher
	once             sync.Once
)

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// ProjectService returns the singleton ProjectService instance.
func ProjectService() primary.ProjectService {
	once.Do(initServices)
	return projectService
}

// LedgerService returns the singleton LedgerService instance.
func LedgerService() primary.LedgerService {
	once.Do(initServices)
	return ledgerService
}

// IngestService returns the singleton IngestService instance.
func IngestService() primary.IngestService {
	once.Do(initServices)
	return ingestService
}

// SynthesisService returns the singleton SynthesisService instance.
func SynthesisService() primary.SynthesisService {
	once.Do(initServices)
	return synthesisService
}

// VerifyService returns the singleton VerifyService instance.
func VerifyService() primary.VerifyService {
	once.Do(initServices)
	return verifyService
}

// WatchService returns the singleton WatchService instance.
func WatchService() primary.WatchService {
	once.Do(initServices)
	return watchService
}

// WatchdogService returns the singleton WatchdogService instance.
func WatchdogService() primary.WatchdogService {
	once.Do(initServices)
	return watchdogService
}

// StrategyService returns the singleton StrategyService instance.
func StrategyService() primary.StrategyService {
	once.Do(initServices)
	return strategyService
}

// ExportService returns the singleton ExportService instance.
func ExportService() primary.ExportService {
	once.Do(initServices)
	return exportService
}

// EventBus returns the live telemetry publisher.
func EventBus() events.Publisher {
	once.Do(initServices)
	return publisher
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open ledger database: %v", err)
	}

	// Repository adapters (secondary ports).
	projectRepo := sqlite.NewProjectRepository(database)
	branchRepo := sqlite.NewBranchRepository(database)
	findingRepo := sqlite.NewFindingRepository(database)
	artifactRepo := sqlite.NewArtifactRepository(database)
	hypoRepo := sqlite.NewHypothesisRepository(database)
	linkRepo := sqlite.NewLinkRepository(database)
	missionRepo := sqlite.NewMissionRepository(database)
	watchRepo := sqlite.NewWatchTargetRepository(database)
	eventRepo := sqlite.NewEventRepository(database)
	cacheRepo := sqlite.NewSearchCacheRepository(database)

	// Telemetry: durable append plus live fan-out.
	publisher = events.NewMemoryPublisher()
	sink := events.NewLedgerSink(eventRepo, publisher)

	// External capabilities.
	trustTable := trust.Seed()
	if cfg.TrustTablePath != "" {
		trustTable, err = trust.Load(cfg.TrustTablePath)
		if err != nil {
			log.Fatalf("failed to load trust table: %v", err)
		}
	}
	guard := netguard.New(cfg.AllowPrivateNetworks)
	fetcher := fetch.NewRegistry(cfg.FetchTimeout)
	provider := search.NewCachedProvider(
		search.NewBraveProvider(cfg.BraveAPIKey),
		cacheRepo,
		time.Duration(cfg.SearchCacheTTLHours)*time.Hour,
	)

	// Services (primary ports implementation).
	projectService = app.NewProjectService(projectRepo, branchRepo, findingRepo,
		artifactRepo, hypoRepo, linkRepo, missionRepo, watchRepo, sink)
	ledgerService = app.NewLedgerService(findingRepo, branchRepo, hypoRepo, artifactRepo, sink)
	ingestService = app.NewIngestService(findingRepo, branchRepo, fetcher, guard, trustTable, sink)
	synthesisService = app.NewSynthesisService(findingRepo, branchRepo, linkRepo, sink)
	verifyService = app.NewVerifyService(missionRepo, findingRepo, linkRepo, provider,
		ingestService, sink, cfg.VerifyIngestTopN)
	watchService = app.NewWatchService(watchRepo, branchRepo, sink)
	watchdogService = app.NewWatchdogService(watchRepo, branchRepo, ingestService,
		fetcher, provider, sink, cfg.WatchIngestTopN)
	strategyService = app.NewStrategyService(projectRepo, branchRepo, findingRepo,
		missionRepo, linkRepo, watchRepo, hypoRepo,
		verifyService, synthesisService, watchdogService, sink)
	exportService = app.NewExportService(projectRepo, branchRepo, findingRepo,
		artifactRepo, hypoRepo, linkRepo, missionRepo, eventRepo)
}
