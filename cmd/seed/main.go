// Command seed loads companies, users and approval rules from a YAML fixture.
// The HTTP API has no user management, so this is how a directory is bootstrapped.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/garyjia/expense-approval/internal/config"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-approval/pkg/database"
	"github.com/garyjia/expense-approval/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	fixturePath := flag.String("fixture", "configs/seed.example.yaml", "path to the seed fixture")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     "console",
		Service:    "seed",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	fixture, err := LoadFixture(*fixturePath)
	if err != nil {
		logger.Fatal("Failed to load fixture", zap.Error(err))
	}

	db, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	result, err := Seed(context.Background(),
		sqlite.NewDB(db.DB, logger),
		repository.NewDirectoryRepository(db.DB, logger),
		repository.NewRuleRepository(db.DB, logger),
		fixture,
	)
	if err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}

	logger.Info("Seed complete",
		zap.Int("companies", result.Companies),
		zap.Int("users", result.Users),
		zap.Int("rules", result.Rules))
}
