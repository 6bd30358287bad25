package stubapi

import (
	"context"
	"fmt"
	"strings"

	"finspect/internal/core"
)

// SeedCategory is one row of seed data. Parent refers to another row by
// name; empty means a root.
type SeedCategory struct {
	Name        string
	Parent      string
	ColorCode   string
	Description string
}

// Seed inserts rows into an empty store. Parents must precede their
// children. It returns the number of rows inserted, 0 when the store
// already holds data.
func Seed(ctx context.Context, store Store, rows []SeedCategory) (int, error) {
	existing, err := store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list existing categories: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	ids := make(map[string]core.ID, len(rows))
	n := 0
	for i, row := range rows {
		c := core.Category{
			Name:        strings.TrimSpace(row.Name),
			Description: strings.TrimSpace(row.Description),
			ColorCode:   strings.TrimSpace(row.ColorCode),
			IsActive:    true,
		}
		if c.ColorCode == "" {
			c.ColorCode = defaultColor
		}
		if err := c.Input().Validate(); err != nil {
			return n, fmt.Errorf("seed row %d (%s): %w", i+1, row.Name, err)
		}
		if p := strings.ToLower(strings.TrimSpace(row.Parent)); p != "" {
			pid, ok := ids[p]
			if !ok {
				return n, fmt.Errorf("seed row %d (%s): unknown parent %q", i+1, row.Name, row.Parent)
			}
			c.ParentID = core.IDPtr(pid)
		}
		order := n
		c.SortOrder = &order
		stored, err := store.Insert(ctx, c)
		if err != nil {
			return n, fmt.Errorf("insert seed row %d: %w", i+1, err)
		}
		ids[strings.ToLower(c.Name)] = stored.ID
		n++
	}
	return n, nil
}

const defaultColor = "#607D8B"
