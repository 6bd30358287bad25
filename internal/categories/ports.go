package categories

import (
	"context"

	"finspect/internal/core"
)

// Ports for the category API.
type (
	Reader interface {
		FetchAll(ctx context.Context) ([]core.Category, error)
		FetchByID(ctx context.Context, id core.ID) (core.Category, error)
	}

	// ViewReader serves the narrower list views offered by the API.
	ViewReader interface {
		TopLevel(ctx context.Context) ([]core.Category, error)
		Subcategories(ctx context.Context, parentID core.ID) ([]core.Category, error)
		Search(ctx context.Context, query string, parentOnly bool) ([]core.Category, error)
	}

	Writer interface {
		Create(ctx context.Context, in core.CategoryInput) (core.Category, error)
		Update(ctx context.Context, id core.ID, in core.CategoryInput) (core.Category, error)
		Delete(ctx context.Context, id core.ID) error
		Activate(ctx context.Context, id core.ID) (core.Category, error)
	}

	// Invalidator drops cached reads.
	Invalidator interface {
		Invalidate()
	}

	// Repository is everything the mutation coordinator needs.
	Repository interface {
		Reader
		ViewReader
		Writer
		Invalidator
	}
)
