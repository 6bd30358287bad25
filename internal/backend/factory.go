package backend

import (
	"context"
	"fmt"
	"log/slog"

	"finspect/internal/sheets"
	gsheet "finspect/internal/sheets/google"
	"finspect/internal/sheets/memory"
	"finspect/internal/storage"
	"finspect/internal/stubapi"
)

var (
	_ Factory       = (*DefaultFactory)(nil)
	_ stubapi.Store = (*storage.CategoryStore)(nil)
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	// seedReader overrides the configured seed source, used by tests.
	seedReader sheets.SeedReader
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// WithSeedReader makes the factory seed from r regardless of config.
func (f *DefaultFactory) WithSeedReader(r sheets.SeedReader) *DefaultFactory {
	f.seedReader = r
	return f
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store stubapi.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewCategoryStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "component", "backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = stubapi.NewMemoryStore()
		f.logger.Info("Initialized memory backend", "component", "backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	seeded, err := f.seed(ctx, store, config)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &BackendResult{
		Store:   store,
		Seeded:  seeded,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) seed(ctx context.Context, store stubapi.Store, config Config) (int, error) {
	reader := f.seedReader
	if reader == nil {
		r, err := f.newSeedReader(ctx, config)
		if err != nil {
			return 0, err
		}
		if r == nil {
			return 0, nil
		}
		reader = r
	}

	rows, err := reader.ReadSeed(ctx)
	if err != nil {
		return 0, fmt.Errorf("read seed: %w", err)
	}
	n, err := stubapi.Seed(ctx, store, rows)
	if err != nil {
		return n, fmt.Errorf("seed store: %w", err)
	}
	if n > 0 {
		f.logger.Info("Seeded category store", "component", "backend", "source", config.Seed, "rows", n)
	}
	return n, nil
}

func (f *DefaultFactory) newSeedReader(ctx context.Context, config Config) (sheets.SeedReader, error) {
	switch config.Seed {
	case SeedSheets:
		cli, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets seed: %w", err)
		}
		return cli, nil
	case SeedFiles, "":
		return memory.NewFromFiles(config.DataDirectory), nil
	default:
		return nil, nil
	}
}
