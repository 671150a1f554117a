package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/config"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/domain"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/filter"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/port"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, predicate filter.QueryPredicate) ([]domain.AccountingDocument, error) {
	args := m.Called(ctx, predicate)
	if docs := args.Get(0); docs != nil {
		return docs.([]domain.AccountingDocument), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	args := m.Called(ctx, input)
	if out := args.Get(0); out != nil {
		return out.(*port.UploadOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStorage) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	if data := args.Get(0); data != nil {
		return data.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, bucket, key string) error {
	return m.Called(ctx, bucket, key).Error(0)
}

func (m *mockStorage) List(ctx context.Context, bucket, prefix string) ([]port.ObjectInfo, error) {
	args := m.Called(ctx, bucket, prefix)
	if objects := args.Get(0); objects != nil {
		return objects.([]port.ObjectInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStorage) GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error) {
	args := m.Called(ctx, bucket, key, expirySeconds)
	return args.String(0), args.Error(1)
}

type mockEmailSender struct {
	mock.Mock
}

func (m *mockEmailSender) Send(ctx context.Context, msg port.EmailMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type mockRunRepo struct {
	mock.Mock
}

func (m *mockRunRepo) Create(ctx context.Context, run *domain.ExportRun) error {
	return m.Called(ctx, run).Error(0)
}

func (m *mockRunRepo) GetByID(ctx context.Context, id string) (*domain.ExportRun, error) {
	args := m.Called(ctx, id)
	if run := args.Get(0); run != nil {
		return run.(*domain.ExportRun), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRunRepo) List(ctx context.Context, limit, offset int) ([]domain.ExportRun, int, error) {
	args := m.Called(ctx, limit, offset)
	if runs := args.Get(0); runs != nil {
		return runs.([]domain.ExportRun), args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func exportableDocument(number string) domain.AccountingDocument {
	return domain.AccountingDocument{
		Number:       number,
		IssueDate:    time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC),
		Kind:         domain.KindCustomerInvoice,
		State:        domain.StatePosted,
		CurrencyCode: "EUR",
		Seller: domain.Party{
			Name:        "Voorbeeld BV",
			VATNumber:   "BE0123456749",
			CountryCode: "BE",
		},
		Buyer: domain.Party{
			Name:        "Klant NV",
			VATNumber:   "BE0987654321",
			CountryCode: "BE",
		},
		Lines: []domain.LineItem{{
			Index:       1,
			Description: "Consultancy",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("100.00"),
			NetAmount:   decimal.RequireFromString("100.00"),
			TaxCategory: "S",
			TaxRate:     decimal.NewFromInt(21),
		}},
		DeclaredTotal: decPtr("121.00"),
	}
}

func defaultExportConfig() config.ExportConfig {
	return config.ExportConfig{
		Direction:     "both",
		DocumentType:  "all",
		StateFilter:   "posted",
		FileExtension: "xml",
		SendDay:       5,
	}
}

func defaultS3Config() config.S3Config {
	return config.S3Config{Bucket: "exports-bucket", Prefix: "exports", PresignExpiry: 3600}
}

func testSpec() domain.FilterSpec {
	return domain.FilterSpec{Quarter: "Q4", Year: 2025}
}

func TestRunHappyPath(t *testing.T) {
	fetcher := new(mockFetcher)
	storage := new(mockStorage)
	runs := new(mockRunRepo)

	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Return([]domain.AccountingDocument{exportableDocument("2025-0001")}, nil)
	storage.On("Upload", mock.Anything, mock.MatchedBy(func(input port.UploadInput) bool {
		return input.Bucket == "exports-bucket" && input.Key == "exports/Export_2025_Q4.zip"
	})).Return(&port.UploadOutput{Location: "https://exports-bucket/exports/Export_2025_Q4.zip"}, nil)
	storage.On("GetPresignedURL", mock.Anything, "exports-bucket", "exports/Export_2025_Q4.zip", int64(3600)).
		Return("https://signed.example/Export_2025_Q4.zip", nil)
	runs.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := NewExportService(fetcher, storage, nil, runs, defaultExportConfig(), defaultS3Config())
	result, err := svc.Run(context.Background(), testSpec())
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusCompleted, result.Run.Status)
	assert.Equal(t, "Export_2025_Q4.zip", result.Run.ArchiveName)
	assert.Equal(t, "exports/Export_2025_Q4.zip", result.Run.StorageKey)
	assert.Equal(t, 1, result.Run.Manifest.Exported)
	assert.Empty(t, result.Run.Manifest.Skipped)
	assert.NotEmpty(t, result.Archive)
	assert.Equal(t, "https://signed.example/Export_2025_Q4.zip", result.Download)

	fetcher.AssertExpectations(t)
	storage.AssertExpectations(t)
	runs.AssertExpectations(t)
}

func TestRunFetchErrorIsFatal(t *testing.T) {
	fetcher := new(mockFetcher)
	storage := new(mockStorage)
	runs := new(mockRunRepo)

	fetcher.On("Fetch", mock.Anything, mock.Anything).Return(nil, domain.ErrFetchUnavailable)
	runs.On("Create", mock.Anything, mock.MatchedBy(func(run *domain.ExportRun) bool {
		return run.Status == domain.RunStatusFailed && run.Error != ""
	})).Return(nil)

	svc := NewExportService(fetcher, storage, nil, runs, defaultExportConfig(), defaultS3Config())
	_, err := svc.Run(context.Background(), testSpec())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetchUnavailable)

	// No partial archive is exposed on a fatal failure.
	storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	runs.AssertExpectations(t)
}

func TestRunMappingErrorsAreRecordedNotFatal(t *testing.T) {
	fetcher := new(mockFetcher)
	storage := new(mockStorage)
	runs := new(mockRunRepo)

	broken := exportableDocument("2025-0002")
	broken.Seller.VATNumber = ""
	broken.Seller.EndpointID = ""

	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Return([]domain.AccountingDocument{exportableDocument("2025-0001"), broken}, nil)
	storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	storage.On("GetPresignedURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("https://signed.example/a.zip", nil)
	runs.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := NewExportService(fetcher, storage, nil, runs, defaultExportConfig(), defaultS3Config())
	result, err := svc.Run(context.Background(), testSpec())
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusPartial, result.Run.Status)
	assert.Equal(t, 2, result.Run.Manifest.Candidates)
	assert.Equal(t, 1, result.Run.Manifest.Exported)
	require.Len(t, result.Run.Manifest.Skipped, 1)
	assert.Equal(t, "2025-0002", result.Run.Manifest.Skipped[0].Number)
	assert.Contains(t, result.Run.Manifest.Skipped[0].Reason, "endpoint_id")
}

func TestRunEmptyBatch(t *testing.T) {
	fetcher := new(mockFetcher)
	storage := new(mockStorage)
	runs := new(mockRunRepo)

	fetcher.On("Fetch", mock.Anything, mock.Anything).Return([]domain.AccountingDocument{}, nil)
	runs.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := NewExportService(fetcher, storage, nil, runs, defaultExportConfig(), defaultS3Config())
	result, err := svc.Run(context.Background(), testSpec())
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusEmpty, result.Run.Status)
	storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestRunDeliversEmails(t *testing.T) {
	fetcher := new(mockFetcher)
	storage := new(mockStorage)
	email := new(mockEmailSender)
	runs := new(mockRunRepo)

	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Return([]domain.AccountingDocument{exportableDocument("2025-0001")}, nil)
	storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	storage.On("GetPresignedURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("https://signed.example/a.zip", nil)
	runs.On("Create", mock.Anything, mock.Anything).Return(nil)
	email.On("Send", mock.Anything, mock.MatchedBy(func(msg port.EmailMessage) bool {
		return len(msg.To) == 1 && msg.To[0] == "inbox@intermediary.example" &&
			len(msg.Attachments) == 1 && msg.Attachments[0].Filename == "Export_2025_Q4.zip"
	})).Return(nil).Once()
	email.On("Send", mock.Anything, mock.MatchedBy(func(msg port.EmailMessage) bool {
		return len(msg.To) == 1 && msg.To[0] == "books@accountant.example" &&
			len(msg.Attachments) == 1 && msg.Attachments[0].Filename == "Export_2025_Q4_summary.xlsx"
	})).Return(nil).Once()

	cfg := defaultExportConfig()
	cfg.UBLEmail = "inbox@intermediary.example"
	cfg.SummaryEmail = "books@accountant.example"
	cfg.SendAsZip = true

	svc := NewExportService(fetcher, storage, email, runs, cfg, defaultS3Config())
	_, err := svc.Run(context.Background(), testSpec())
	require.NoError(t, err)
	email.AssertExpectations(t)
}

func TestRunFiltersFromConfigDefaults(t *testing.T) {
	fetcher := new(mockFetcher)

	cfg := defaultExportConfig()
	cfg.Direction = "outgoing"
	cfg.DocumentType = "invoice"

	fetcher.On("Fetch", mock.Anything, mock.MatchedBy(func(p filter.QueryPredicate) bool {
		return len(p.Kinds) == 1 && p.Kinds[0] == domain.KindCustomerInvoice
	})).Return([]domain.AccountingDocument{}, nil)

	svc := NewExportService(fetcher, nil, nil, nil, cfg, defaultS3Config())
	_, err := svc.Run(context.Background(), testSpec())
	require.NoError(t, err)
	fetcher.AssertExpectations(t)
}

func TestAutoSendDue(t *testing.T) {
	svc := NewExportService(nil, nil, nil, nil, defaultExportConfig(), defaultS3Config())

	assert.True(t, svc.AutoSendDue(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)))
	assert.True(t, svc.AutoSendDue(time.Date(2025, 4, 5, 9, 0, 0, 0, time.UTC)))
	assert.True(t, svc.AutoSendDue(time.Date(2025, 7, 5, 9, 0, 0, 0, time.UTC)))
	assert.True(t, svc.AutoSendDue(time.Date(2025, 10, 5, 9, 0, 0, 0, time.UTC)))

	assert.False(t, svc.AutoSendDue(time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC)), "wrong day")
	assert.False(t, svc.AutoSendDue(time.Date(2025, 5, 5, 9, 0, 0, 0, time.UTC)), "not a send month")
}

func TestRunPreviousQuarter(t *testing.T) {
	fetcher := new(mockFetcher)

	fetcher.On("Fetch", mock.Anything, mock.MatchedBy(func(p filter.QueryPredicate) bool {
		return p.IssuedFrom.Format("2006-01-02") == "2025-10-01" &&
			p.IssuedTo.Format("2006-01-02") == "2025-12-31"
	})).Return([]domain.AccountingDocument{}, nil)

	svc := NewExportService(fetcher, nil, nil, nil, defaultExportConfig(), defaultS3Config())
	result, err := svc.RunPreviousQuarter(context.Background(), time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "Export_2025_Q4.zip", result.Run.ArchiveName)
	fetcher.AssertExpectations(t)
}

func TestListArchivesStripsPrefix(t *testing.T) {
	storage := new(mockStorage)
	storage.On("List", mock.Anything, "exports-bucket", "exports/").Return([]port.ObjectInfo{
		{Key: "exports/Export_2025_Q4.zip", SizeBytes: 1234, LastModified: time.Now()},
	}, nil)

	svc := NewExportService(nil, storage, nil, nil, defaultExportConfig(), defaultS3Config())
	exports, err := svc.ListArchives(context.Background())
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, "Export_2025_Q4.zip", exports[0].Filename)
	assert.Equal(t, int64(1234), exports[0].SizeBytes)
}

func TestArchiveDownloadURLRejectsTraversal(t *testing.T) {
	storage := new(mockStorage)
	svc := NewExportService(nil, storage, nil, nil, defaultExportConfig(), defaultS3Config())

	for _, name := range []string{"", "a/b.zip", "../secrets.zip"} {
		_, err := svc.ArchiveDownloadURL(context.Background(), name)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	storage.AssertNotCalled(t, "GetPresignedURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFetchArchive(t *testing.T) {
	storage := new(mockStorage)
	storage.On("Download", mock.Anything, "exports-bucket", "exports/Export_2025_Q4.zip").
		Return([]byte("archive bytes"), nil)

	svc := NewExportService(nil, storage, nil, nil, defaultExportConfig(), defaultS3Config())
	data, err := svc.FetchArchive(context.Background(), "Export_2025_Q4.zip")
	require.NoError(t, err)
	assert.Equal(t, []byte("archive bytes"), data)
	storage.AssertExpectations(t)

	_, err = svc.FetchArchive(context.Background(), "../secrets.zip")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDeleteArchive(t *testing.T) {
	storage := new(mockStorage)
	storage.On("Delete", mock.Anything, "exports-bucket", "exports/Export_2025_Q4.zip").Return(nil)

	svc := NewExportService(nil, storage, nil, nil, defaultExportConfig(), defaultS3Config())
	require.NoError(t, svc.DeleteArchive(context.Background(), "Export_2025_Q4.zip"))
	storage.AssertExpectations(t)

	err := svc.DeleteArchive(context.Background(), "a/b.zip")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	storage.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, "exports/a/b.zip")
}

func TestGetRun(t *testing.T) {
	runs := new(mockRunRepo)
	want := &domain.ExportRun{ID: "run-1", ArchiveName: "Export_2025_Q4.zip"}
	runs.On("GetByID", mock.Anything, "run-1").Return(want, nil)
	runs.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	svc := NewExportService(nil, nil, nil, runs, defaultExportConfig(), defaultS3Config())
	got, err := svc.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = svc.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
