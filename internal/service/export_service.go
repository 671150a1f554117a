// Package service orchestrates export runs: resolve, fetch, map, serialize,
// assemble, store, record, deliver.
package service

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/archive"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/config"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/domain"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/filter"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/logger"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/port"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/summary"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/ubl"
)

// ExportService runs exports and exposes their artifacts.
type ExportService interface {
	Run(ctx context.Context, spec domain.FilterSpec) (*domain.ExportResult, error)
	RunPreviousQuarter(ctx context.Context, today time.Time) (*domain.ExportResult, error)
	AutoSendDue(today time.Time) bool
	ListArchives(ctx context.Context) ([]domain.ExportInfo, error)
	ArchiveDownloadURL(ctx context.Context, filename string) (string, error)
	FetchArchive(ctx context.Context, filename string) ([]byte, error)
	DeleteArchive(ctx context.Context, filename string) error
	ListRuns(ctx context.Context, limit, offset int) ([]domain.ExportRun, int, error)
	GetRun(ctx context.Context, id string) (*domain.ExportRun, error)
}

type exportService struct {
	fetcher   port.DocumentFetcher
	storage   port.ObjectStorage
	email     port.EmailSender
	runs      port.ExportRunRepository
	mapper    *ubl.Mapper
	assembler *archive.Assembler
	exportCfg config.ExportConfig
	s3Cfg     config.S3Config
	log       zerolog.Logger
}

// NewExportService wires an export service. storage, email, and runs may be
// nil for one-shot CLI use without the respective side effects.
func NewExportService(
	fetcher port.DocumentFetcher,
	storage port.ObjectStorage,
	email port.EmailSender,
	runs port.ExportRunRepository,
	exportCfg config.ExportConfig,
	s3Cfg config.S3Config,
) ExportService {
	return &exportService{
		fetcher:   fetcher,
		storage:   storage,
		email:     email,
		runs:      runs,
		mapper:    ubl.NewMapper(exportCfg.SelfBilling),
		assembler: archive.NewAssembler(exportCfg.FileExtension),
		exportCfg: exportCfg,
		s3Cfg:     s3Cfg,
		log:       logger.WithComponent("export"),
	}
}

func (s *exportService) Run(ctx context.Context, spec domain.FilterSpec) (*domain.ExportResult, error) {
	spec = s.applyDefaults(spec)
	startedAt := time.Now().UTC()
	run := domain.ExportRun{
		ID:          uuid.NewString(),
		ArchiveName: archive.ArchiveName(spec),
		Spec:        spec,
		StartedAt:   startedAt,
	}

	predicate := filter.Resolve(spec)
	for _, warning := range predicate.Warnings {
		s.log.Warn().Str("run_id", run.ID).Msg(warning)
	}

	docs, err := s.fetcher.Fetch(ctx, predicate)
	if err != nil {
		s.finishFailed(ctx, &run, err)
		return nil, fmt.Errorf("fetching documents: %w", err)
	}

	items := make([]archive.Item, 0, len(docs))
	for _, doc := range docs {
		item := archive.Item{Source: doc}
		mapped, mapErr := s.mapper.Map(doc)
		if mapErr != nil {
			if _, ok := domain.AsMappingError(mapErr); !ok {
				s.finishFailed(ctx, &run, mapErr)
				return nil, fmt.Errorf("mapping document %s: %w", doc.Number, mapErr)
			}
			item.Err = mapErr
			items = append(items, item)
			continue
		}
		serialized, serErr := ubl.Serialize(mapped)
		if serErr != nil {
			// Mapping guarantees serializable documents; a failure here is
			// an internal-consistency bug and fails the whole run.
			s.finishFailed(ctx, &run, serErr)
			return nil, fmt.Errorf("serializing document %s: %w", doc.Number, serErr)
		}
		item.Doc = mapped
		item.Bytes = serialized
		items = append(items, item)
	}

	archiveBytes, manifest, err := s.assembler.Assemble(run.ArchiveName, items)
	if err != nil {
		s.finishFailed(ctx, &run, err)
		return nil, fmt.Errorf("assembling archive: %w", err)
	}
	run.Manifest = manifest
	run.Status = runStatus(manifest)

	result := &domain.ExportResult{Archive: archiveBytes}

	if s.storage != nil && manifest.Exported > 0 {
		key := s.archiveKey(run.ArchiveName)
		_, err := s.storage.Upload(ctx, port.UploadInput{
			Bucket:      s.s3Cfg.Bucket,
			Key:         key,
			Body:        bytes.NewReader(archiveBytes),
			ContentType: "application/zip",
		})
		if err != nil {
			s.finishFailed(ctx, &run, err)
			return nil, fmt.Errorf("storing archive: %w", err)
		}
		run.StorageKey = key

		url, err := s.storage.GetPresignedURL(ctx, s.s3Cfg.Bucket, key, s.s3Cfg.PresignExpiry)
		if err != nil {
			s.log.Warn().Err(err).Str("run_id", run.ID).Msg("presigning archive URL failed")
		} else {
			result.Download = url
		}
	}

	run.FinishedAt = time.Now().UTC()
	s.recordRun(ctx, &run)
	result.Run = run

	if manifest.Exported > 0 {
		s.deliver(ctx, run, items, archiveBytes)
	}

	s.log.Info().
		Str("run_id", run.ID).
		Str("archive", run.ArchiveName).
		Int("candidates", manifest.Candidates).
		Int("exported", manifest.Exported).
		Int("skipped", len(manifest.Skipped)).
		Str("status", string(run.Status)).
		Msg("export run finished")
	return result, nil
}

// RunPreviousQuarter runs an export over the calendar quarter preceding
// today's, with the configured default filters.
func (s *exportService) RunPreviousQuarter(ctx context.Context, today time.Time) (*domain.ExportResult, error) {
	quarter, year := previousQuarter(today)
	spec := domain.FilterSpec{
		Quarter: quarter,
		Year:    year,
	}
	return s.Run(ctx, spec)
}

// AutoSendDue reports whether today is a scheduled quarterly send day: the
// configured day-of-month in the month following a quarter end.
func (s *exportService) AutoSendDue(today time.Time) bool {
	if today.Day() != s.exportCfg.SendDay {
		return false
	}
	switch today.Month() {
	case time.January, time.April, time.July, time.October:
		return true
	}
	return false
}

func (s *exportService) ListArchives(ctx context.Context) ([]domain.ExportInfo, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("%w: object storage not configured", domain.ErrInternal)
	}
	prefix := strings.TrimSuffix(s.s3Cfg.Prefix, "/") + "/"
	objects, err := s.storage.List(ctx, s.s3Cfg.Bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}
	exports := make([]domain.ExportInfo, 0, len(objects))
	for _, obj := range objects {
		name := strings.TrimPrefix(obj.Key, prefix)
		if name == "" {
			continue
		}
		exports = append(exports, domain.ExportInfo{
			Filename:     name,
			SizeBytes:    obj.SizeBytes,
			LastModified: obj.LastModified,
		})
	}
	return exports, nil
}

func (s *exportService) ArchiveDownloadURL(ctx context.Context, filename string) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("%w: object storage not configured", domain.ErrInternal)
	}
	if err := validateArchiveName(filename); err != nil {
		return "", err
	}
	url, err := s.storage.GetPresignedURL(ctx, s.s3Cfg.Bucket, s.archiveKey(filename), s.s3Cfg.PresignExpiry)
	if err != nil {
		return "", fmt.Errorf("presigning archive URL: %w", err)
	}
	return url, nil
}

// FetchArchive returns the raw bytes of one stored archive.
func (s *exportService) FetchArchive(ctx context.Context, filename string) ([]byte, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("%w: object storage not configured", domain.ErrInternal)
	}
	if err := validateArchiveName(filename); err != nil {
		return nil, err
	}
	data, err := s.storage.Download(ctx, s.s3Cfg.Bucket, s.archiveKey(filename))
	if err != nil {
		return nil, fmt.Errorf("downloading archive: %w", err)
	}
	return data, nil
}

// DeleteArchive removes one stored archive from object storage.
func (s *exportService) DeleteArchive(ctx context.Context, filename string) error {
	if s.storage == nil {
		return fmt.Errorf("%w: object storage not configured", domain.ErrInternal)
	}
	if err := validateArchiveName(filename); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, s.s3Cfg.Bucket, s.archiveKey(filename)); err != nil {
		return fmt.Errorf("deleting archive: %w", err)
	}
	s.log.Info().Str("archive", filename).Msg("archive deleted")
	return nil
}

func (s *exportService) ListRuns(ctx context.Context, limit, offset int) ([]domain.ExportRun, int, error) {
	if s.runs == nil {
		return nil, 0, fmt.Errorf("%w: run history not configured", domain.ErrInternal)
	}
	return s.runs.List(ctx, limit, offset)
}

func (s *exportService) GetRun(ctx context.Context, id string) (*domain.ExportRun, error) {
	if s.runs == nil {
		return nil, fmt.Errorf("%w: run history not configured", domain.ErrInternal)
	}
	return s.runs.GetByID(ctx, id)
}

func validateArchiveName(filename string) error {
	if filename == "" || strings.Contains(filename, "/") || strings.Contains(filename, "..") {
		return fmt.Errorf("%w: invalid archive name", domain.ErrInvalidInput)
	}
	return nil
}

// applyDefaults fills omitted filter fields from the configured defaults.
func (s *exportService) applyDefaults(spec domain.FilterSpec) domain.FilterSpec {
	if spec.Direction == "" {
		spec.Direction = domain.Direction(s.exportCfg.Direction)
	}
	if spec.DocumentType == "" {
		spec.DocumentType = domain.DocumentTypeFilter(s.exportCfg.DocumentType)
	}
	if spec.StateFilter == "" {
		spec.StateFilter = domain.StateFilter(s.exportCfg.StateFilter)
	}
	return spec
}

func (s *exportService) archiveKey(name string) string {
	return path.Join(s.s3Cfg.Prefix, name)
}

func (s *exportService) finishFailed(ctx context.Context, run *domain.ExportRun, cause error) {
	run.Status = domain.RunStatusFailed
	run.Error = cause.Error()
	run.FinishedAt = time.Now().UTC()
	s.recordRun(ctx, run)
}

func (s *exportService) recordRun(ctx context.Context, run *domain.ExportRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("recording export run failed")
	}
}

// deliver emails the UBL output to the intermediary inbox and the summary
// workbook to the accountant. Delivery failures are logged, not fatal: the
// archive is already stored and the run recorded.
func (s *exportService) deliver(ctx context.Context, run domain.ExportRun, items []archive.Item, archiveBytes []byte) {
	if s.email == nil {
		return
	}

	if s.exportCfg.UBLEmail != "" {
		msg := port.EmailMessage{
			To:       []string{s.exportCfg.UBLEmail},
			Subject:  fmt.Sprintf("UBL export %s", run.ArchiveName),
			TextBody: deliveryBody(run),
		}
		if s.exportCfg.SendAsZip {
			msg.Attachments = []port.Attachment{{
				Filename:    run.ArchiveName,
				ContentType: "application/zip",
				Data:        archiveBytes,
			}}
		} else {
			for _, item := range items {
				if item.Err != nil {
					continue
				}
				msg.Attachments = append(msg.Attachments, port.Attachment{
					Filename:    s.assembler.EntryName(item.Doc),
					ContentType: "application/xml",
					Data:        item.Bytes,
				})
			}
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.log.Error().Err(err).Str("run_id", run.ID).Msg("sending UBL email failed")
		}
	}

	if s.exportCfg.SummaryEmail != "" {
		workbook, err := summary.Build(run.Manifest, items)
		if err != nil {
			s.log.Error().Err(err).Str("run_id", run.ID).Msg("building summary workbook failed")
			return
		}
		summaryName := strings.TrimSuffix(run.ArchiveName, ".zip") + "_summary.xlsx"
		msg := port.EmailMessage{
			To:       []string{s.exportCfg.SummaryEmail},
			Subject:  fmt.Sprintf("Export summary %s", run.ArchiveName),
			TextBody: deliveryBody(run),
			Attachments: []port.Attachment{{
				Filename:    summaryName,
				ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				Data:        workbook,
			}},
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.log.Error().Err(err).Str("run_id", run.ID).Msg("sending summary email failed")
		}
	}
}

func deliveryBody(run domain.ExportRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Export %s\n\n", run.ArchiveName)
	fmt.Fprintf(&b, "Documents exported: %d of %d\n", run.Manifest.Exported, run.Manifest.Candidates)
	if len(run.Manifest.Skipped) > 0 {
		b.WriteString("\nSkipped documents:\n")
		for _, skipped := range run.Manifest.Skipped {
			fmt.Fprintf(&b, "  %s: %s\n", skipped.Number, skipped.Reason)
		}
	}
	return b.String()
}

func runStatus(manifest domain.ExportManifest) domain.RunStatus {
	switch {
	case manifest.Candidates == 0:
		return domain.RunStatusEmpty
	case len(manifest.Skipped) > 0:
		return domain.RunStatusPartial
	default:
		return domain.RunStatusCompleted
	}
}

// previousQuarter returns the calendar quarter before the one containing t.
func previousQuarter(t time.Time) (quarter string, year int) {
	q := (int(t.Month()) - 1) / 3 // 0-based current quarter
	year = t.Year()
	if q == 0 {
		return "Q4", year - 1
	}
	return fmt.Sprintf("Q%d", q), year
}
