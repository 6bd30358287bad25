// Package sheets provides seed sources for the reference category API.
package sheets

import (
	"context"

	"finspect/internal/stubapi"
)

// SeedReader yields the initial category rows, parents before children.
type SeedReader interface {
	ReadSeed(ctx context.Context) ([]stubapi.SeedCategory, error)
}
