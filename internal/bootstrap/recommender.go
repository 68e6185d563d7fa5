package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/recommender/internal/api"
	"github.com/jonesrussell/north-cloud/recommender/internal/config"
	"github.com/jonesrussell/north-cloud/recommender/internal/database"
	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
	"github.com/jonesrussell/north-cloud/recommender/internal/embedding"
	"github.com/jonesrussell/north-cloud/recommender/internal/feedcache"
	"github.com/jonesrussell/north-cloud/recommender/internal/logging"
	"github.com/jonesrussell/north-cloud/recommender/internal/platform/httpserver"
	"github.com/jonesrussell/north-cloud/recommender/internal/platform/logger"
	"github.com/jonesrussell/north-cloud/recommender/internal/profile"
	"github.com/jonesrussell/north-cloud/recommender/internal/ranking"
	"github.com/jonesrussell/north-cloud/recommender/internal/recommend"
	"github.com/jonesrussell/north-cloud/recommender/internal/reduction"
	"github.com/jonesrussell/north-cloud/recommender/internal/scheduler"
	"github.com/jonesrussell/north-cloud/recommender/internal/simindex"
	"github.com/jonesrussell/north-cloud/recommender/internal/storage"
	"github.com/jonesrussell/north-cloud/recommender/internal/telemetry"
)

const pingTimeout = 2 * time.Second

// CoreComponents holds the pipeline shared by the HTTP server and the
// worker.
type CoreComponents struct {
	Cfg         *config.Config
	Log         logger.Logger
	KVLog       *logging.Adapter
	DB          *sqlx.DB
	Interaction *database.InteractionRepository
	Profiles    *database.ProfileRepository
	Corpus      *storage.ContentStorage
	Redis       *goredis.Client
	Cache       *feedcache.Cache
	Index       *simindex.Index
	Telemetry   *telemetry.Provider
	Recommender *recommend.Service
}

// NewCoreComponents wires the shared recommendation pipeline.
func NewCoreComponents(cfg *config.Config, log logger.Logger) (*CoreComponents, error) {
	kvLog := logging.NewAdapter(log)

	dbComps, err := SetupDatabase(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	corpus, err := SetupElasticsearch(cfg, log)
	if err != nil {
		_ = dbComps.DB.Close()
		return nil, fmt.Errorf("setup elasticsearch: %w", err)
	}

	redisClient, err := SetupRedis(cfg, log)
	if err != nil {
		_ = dbComps.DB.Close()
		return nil, fmt.Errorf("setup redis: %w", err)
	}

	cache := feedcache.New(feedcache.NewRedisStore(redisClient), kvLog)
	index := simindex.New()
	reducer := reduction.New(cfg.Recommend.ReducedDim, cfg.Recommend.MinTrainingSample)
	ranker := ranking.NewEngine()
	provider := telemetry.NewProvider()

	recommender := recommend.NewService(
		index,
		reducer,
		ranker,
		cache,
		corpus,
		dbComps.ProfileRepo,
		dbComps.InteractionRepo,
		provider,
		kvLog,
	)

	return &CoreComponents{
		Cfg:         cfg,
		Log:         log,
		KVLog:       kvLog,
		DB:          dbComps.DB,
		Interaction: dbComps.InteractionRepo,
		Profiles:    dbComps.ProfileRepo,
		Corpus:      corpus,
		Redis:       redisClient,
		Cache:       cache,
		Index:       index,
		Telemetry:   provider,
		Recommender: recommender,
	}, nil
}

// Close releases the core's connections.
func (c *CoreComponents) Close() {
	_ = c.DB.Close()
	_ = c.Redis.Close()
}

// HTTPComponents holds everything the HTTP server needs.
type HTTPComponents struct {
	Core    *CoreComponents
	Handler *api.Handler
	Server  *httpserver.Server
}

// NewHTTPComponents creates all components for the HTTP server.
func NewHTTPComponents(cfg *config.Config, log logger.Logger) (*HTTPComponents, error) {
	core, err := NewCoreComponents(cfg, log)
	if err != nil {
		return nil, err
	}

	handler := api.NewHandler(
		core.Recommender,
		core.Interaction,
		core.Corpus,
		core.Profiles,
		core.Telemetry,
		core.KVLog,
	)

	serverCfg := &httpserver.Config{
		Port:           cfg.Service.Port,
		Debug:          cfg.Service.Debug,
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
	}

	server := httpserver.NewServer(serverCfg, log, func(router *gin.Engine) {
		httpserver.RegisterHealthRoutes(router, serverCfg, map[string]httpserver.HealthChecker{
			"postgresql": httpserver.PingHealthChecker(func() error {
				ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
				defer cancel()
				return core.DB.PingContext(ctx)
			}),
			"elasticsearch": httpserver.PingHealthChecker(func() error {
				ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
				defer cancel()
				return core.Corpus.TestConnection(ctx)
			}),
			"redis": httpserver.PingHealthChecker(func() error {
				ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
				defer cancel()
				return core.Redis.Ping(ctx).Err()
			}),
		})
		api.SetupRoutes(router, handler, core.Telemetry.Handler())
	})

	return &HTTPComponents{Core: core, Handler: handler, Server: server}, nil
}

// WorkerComponents holds everything the background worker needs.
type WorkerComponents struct {
	Core      *CoreComponents
	Profiles  *profile.Service
	Batch     *profile.BatchRecomputer
	Warmer    *feedcache.Warmer
	Scheduler *scheduler.Scheduler
}

// NewWorkerComponents creates all components for the background worker. The
// embedding provider is a hard dependency here, unlike in the HTTP server.
func NewWorkerComponents(cfg *config.Config, log logger.Logger) (*WorkerComponents, error) {
	core, err := NewCoreComponents(cfg, log)
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.NewClient(embedding.Config{
		Endpoint:    cfg.Embedding.Endpoint,
		APIKey:      cfg.Embedding.APIKey,
		Model:       cfg.Embedding.Model,
		ExpectedDim: cfg.Embedding.ExpectedDim,
		Timeout:     cfg.Embedding.Timeout,
	})
	if err != nil {
		core.Close()
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	profileService := profile.NewService(
		core.Interaction,
		core.Corpus,
		core.Profiles,
		embedder,
		core.Recommender,
		nil,
		core.KVLog,
	)
	batch := profile.NewBatchRecomputer(
		profileService,
		cfg.Recommend.RecomputeWorkers,
		cfg.Recommend.ProviderRPS,
		core.KVLog,
	)

	warmer := feedcache.NewWarmer(
		core.Interaction,
		core.Recommender.WarmUser,
		0, 0,
		core.KVLog,
	)

	sched := scheduler.New(core.KVLog,
		scheduler.Job{
			Name:       "index-rebuild",
			Interval:   cfg.Recommend.RebuildInterval,
			RunOnStart: true,
			Fn: func(ctx context.Context) error {
				_, rebuildErr := core.Recommender.RebuildIndex(ctx)
				return rebuildErr
			},
		},
		scheduler.Job{
			Name:     "profile-recompute",
			Interval: cfg.Recommend.RecomputeInterval,
			Fn: func(ctx context.Context) error {
				userIDs, listErr := core.Profiles.ListStale(ctx, cfg.Recommend.RecomputeBatchSize)
				if listErr != nil {
					return listErr
				}
				core.Telemetry.SetStaleProfiles(len(userIDs))
				if len(userIDs) == 0 {
					return nil
				}
				result := batch.Run(ctx, userIDs)
				core.Telemetry.RecordRecomputeBatch(result.Success, result.Skipped, result.Failed)
				return nil
			},
		},
		scheduler.Job{
			Name:     "cache-warm",
			Interval: cfg.Recommend.WarmInterval,
			Fn: func(ctx context.Context) error {
				warmer.Cycle(ctx)
				return nil
			},
		},
		scheduler.Job{
			Name:     "interaction-prune",
			Interval: cfg.Recommend.PruneInterval,
			Fn: func(ctx context.Context) error {
				removed, pruneErr := core.Interaction.PruneOlderThan(ctx, time.Now().Add(-domain.InteractionRetention))
				if pruneErr != nil {
					return pruneErr
				}
				if removed > 0 {
					core.KVLog.Info("Pruned interaction events", "removed", removed)
				}
				return nil
			},
		},
	)

	return &WorkerComponents{
		Core:      core,
		Profiles:  profileService,
		Batch:     batch,
		Warmer:    warmer,
		Scheduler: sched,
	}, nil
}
