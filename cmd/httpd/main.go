// Command httpd runs the recommender HTTP API.
package main

import (
	"os"

	"github.com/jonesrussell/north-cloud/recommender/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/recommender/internal/platform/logger"
)

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		os.Stderr.WriteString("failed to create logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting recommender HTTP server",
		logger.Int("port", cfg.Service.Port),
		logger.Bool("debug", cfg.Service.Debug),
	)

	components, err := bootstrap.NewHTTPComponents(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize components", logger.Error(err))
	}
	defer components.Core.Close()

	if err := components.Server.RunWithGracefulShutdown(); err != nil {
		log.Fatal("Server error", logger.Error(err))
	}
}
