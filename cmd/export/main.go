// Command export runs one export from the command line, either for an
// explicit quarter or date range, or in -auto mode for the scheduled
// quarterly send.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/books"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/config"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/domain"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/email/noop"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/email/ses"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/logger"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/port"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/repository/postgres"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/service"
	s3storage "github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("export failed")
	}
}

func run() error {
	auto := flag.Bool("auto", false, "quarterly auto-send mode: export the previous quarter only on a scheduled send day")
	quarter := flag.String("quarter", "", "quarter to export (Q1-Q4)")
	year := flag.Int("year", 0, "year to export")
	dateFrom := flag.String("from", "", "range start (YYYY-MM-DD)")
	dateTo := flag.String("to", "", "range end (YYYY-MM-DD)")
	out := flag.String("out", "", "also write the archive to this local path")
	get := flag.String("get", "", "download a stored archive by name instead of running an export")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Setup(cfg.Log)

	var runRepo port.ExportRunRepository
	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		log.Warn().Err(err).Msg("database unavailable, run history disabled")
	} else {
		defer db.Close()
		runRepo = postgres.NewExportRunRepo(db)
	}

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

	ctx := context.Background()

	if *get != "" {
		data, err := exportSvc.FetchArchive(ctx, *get)
		if err != nil {
			return err
		}
		dest := *out
		if dest == "" {
			dest = *get
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("writing archive to %s: %w", dest, err)
		}
		log.Info().Str("archive", *get).Str("path", dest).Msg("archive downloaded")
		return nil
	}

	var result *domain.ExportResult
	if *auto {
		today := time.Now().UTC()
		if !exportSvc.AutoSendDue(today) {
			log.Info().Time("today", today).Msg("not a scheduled send day, nothing to do")
			return nil
		}
		result, err = exportSvc.RunPreviousQuarter(ctx, today)
	} else {
		spec := domain.FilterSpec{
			Quarter:  *quarter,
			Year:     *year,
			DateFrom: *dateFrom,
			DateTo:   *dateTo,
		}
		result, err = exportSvc.Run(ctx, spec)
	}
	if err != nil {
		return err
	}

	if *out != "" {
		if err := os.WriteFile(*out, result.Archive, 0o644); err != nil {
			return fmt.Errorf("writing archive to %s: %w", *out, err)
		}
	}

	manifest := result.Run.Manifest
	log.Info().
		Str("archive", manifest.ArchiveName).
		Int("exported", manifest.Exported).
		Int("skipped", len(manifest.Skipped)).
		Str("status", string(result.Run.Status)).
		Msg("export finished")
	for _, skipped := range manifest.Skipped {
		log.Warn().Str("number", skipped.Number).Str("reason", skipped.Reason).Msg("document skipped")
	}
	return nil
}

func newEmailSender(cfg *config.Config) (port.EmailSender, error) {
	if cfg.Email.Provider == "ses" {
		return ses.NewSESSender(cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.FromName)
	}
	return noop.NewNoopSender(), nil
}
