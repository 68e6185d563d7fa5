package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/recommender/internal/config"
	"github.com/jonesrussell/north-cloud/recommender/internal/database"
	"github.com/jonesrussell/north-cloud/recommender/internal/platform/logger"
)

// DatabaseComponents holds database connection and repositories.
type DatabaseComponents struct {
	DB              *sqlx.DB
	InteractionRepo *database.InteractionRepository
	ProfileRepo     *database.ProfileRepository
}

// SetupDatabase creates database connection and repositories.
func SetupDatabase(cfg *config.Config, log logger.Logger) (*DatabaseComponents, error) {
	dbConfig := database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	}
	dbConfig.SetDefaults()

	log.Info("Connecting to PostgreSQL database",
		logger.String("host", dbConfig.Host),
		logger.String("port", dbConfig.Port),
		logger.String("database", dbConfig.DBName),
	)

	db, err := database.NewPostgresConnection(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Database connected successfully")

	return &DatabaseComponents{
		DB:              db,
		InteractionRepo: database.NewInteractionRepository(db),
		ProfileRepo:     database.NewProfileRepository(db),
	}, nil
}
