package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/books"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/config"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/email/noop"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/email/ses"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/handler"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/logger"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/port"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/repository/postgres"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/router"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/service"
	s3storage "github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Setup(cfg.Log)

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	runRepo := postgres.NewExportRunRepo(db)

	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	sender, err := newEmailSender(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize email sender: %w", err)
	}

	fetcher := books.NewClient(&cfg.Books)

	exportSvc := service.NewExportService(fetcher, s3Client, sender, runRepo, cfg.Export, cfg.S3)

	exportH := handler.NewExportHandler(exportSvc)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(cfg, exportH, healthH)

	log.Info().Str("port", cfg.Server.Port).Msg("server starting")
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func newEmailSender(cfg *config.Config) (port.EmailSender, error) {
	if cfg.Email.Provider == "ses" {
		return ses.NewSESSender(cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.FromName)
	}
	return noop.NewNoopSender(), nil
}
