package bootstrap

import (
	"context"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/recommender/internal/config"
	"github.com/jonesrussell/north-cloud/recommender/internal/platform/logger"
	platformredis "github.com/jonesrussell/north-cloud/recommender/internal/platform/redis"
	"github.com/jonesrussell/north-cloud/recommender/internal/platform/retry"
	"github.com/jonesrussell/north-cloud/recommender/internal/storage"
)

// SetupElasticsearch creates the content corpus store. The corpus is a hard
// dependency: the recommender cannot serve anything without it.
func SetupElasticsearch(cfg *config.Config, log logger.Logger) (*storage.ContentStorage, error) {
	esClient, err := es.NewClient(es.Config{
		Addresses: []string{cfg.Elasticsearch.URL},
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	store := storage.NewContentStorage(esClient, cfg.Elasticsearch.Index)

	// Elasticsearch may still be starting alongside us; retry with backoff
	// before giving up.
	if err := retry.DoWithDefaults(context.Background(), func() error {
		return store.TestConnection(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("verify elasticsearch connection: %w", err)
	}

	if err := store.EnsureIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("ensure content index: %w", err)
	}

	log.Info("Elasticsearch connected successfully",
		logger.String("url", cfg.Elasticsearch.URL),
		logger.String("index", cfg.Elasticsearch.Index),
	)
	return store, nil
}

// SetupRedis creates the Redis client backing the feed cache.
func SetupRedis(cfg *config.Config, log logger.Logger) (*goredis.Client, error) {
	client, err := platformredis.NewClient(platformredis.Config{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	log.Info("Redis connected successfully", logger.String("address", cfg.Redis.Address))
	return client, nil
}
