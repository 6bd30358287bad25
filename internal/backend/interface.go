package backend

import (
	"context"

	"finspect/internal/stubapi"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store behind the reference API and its cleanup.
type BackendResult struct {
	Store stubapi.Store
	// Seeded is the number of rows inserted from the seed source.
	Seeded  int
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	// CreateBackend opens the configured store and seeds it when empty.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	Seed SeedSource
	// Seed files directory
	DataDirectory string

	// Google Sheets seed
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// SeedSource names where initial categories come from.
type SeedSource string

const (
	SeedFiles  SeedSource = "files"
	SeedSheets SeedSource = "sheets"
	SeedNone   SeedSource = "none"
)

func (s SeedSource) IsValid() bool {
	switch s {
	case SeedFiles, SeedSheets, SeedNone:
		return true
	default:
		return false
	}
}
