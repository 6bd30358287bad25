// Package storage keeps categories in SQLite for the reference API.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"finspect/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Save for an id that has no row.
var ErrNotFound = errors.New("category not found")

type CategoryStore struct {
	db *sql.DB
}

func NewCategoryStore(dbPath string) (*CategoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &CategoryStore{db: db}, nil
}

func (s *CategoryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const selectCategories = `SELECT id, name, description, color_code, parent_id, is_active, sort_order FROM categories`

// List returns every row in insertion order.
func (s *CategoryStore) List(ctx context.Context) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx, selectCategories+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (s *CategoryStore) Get(ctx context.Context, id core.ID) (core.Category, bool, error) {
	row := s.db.QueryRowContext(ctx, selectCategories+` WHERE id = ?`, int64(id))
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, false, nil
	}
	if err != nil {
		return core.Category{}, false, err
	}
	return c, true, nil
}

func (s *CategoryStore) Insert(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, description, color_code, parent_id, is_active, sort_order) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, c.Description, c.ColorCode, nullID(c.ParentID), c.IsActive, nullInt(c.SortOrder))
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("read inserted id: %w", err)
	}
	c.ID = core.ID(id)

	slog.DebugContext(ctx, "Category saved to SQLite", "component", "storage", "id", c.ID, "name", c.Name)
	return c, nil
}

func (s *CategoryStore) Save(ctx context.Context, c core.Category) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ?, color_code = ?, parent_id = ?, is_active = ?, sort_order = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		c.Name, c.Description, c.ColorCode, nullID(c.ParentID), c.IsActive, nullInt(c.SortOrder), int64(c.ID))
	if err != nil {
		return fmt.Errorf("update category %d: %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update category %d: %w", c.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *CategoryStore) ExpenseCount(ctx context.Context, id core.ID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM category_expenses WHERE category_id = ?`, int64(id)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expenses for category %d: %w", id, err)
	}
	return n, nil
}

// LinkExpense records an expense reference against the category.
func (s *CategoryStore) LinkExpense(ctx context.Context, id core.ID, reference string) error {
	if _, ok, err := s.Get(ctx, id); err != nil {
		return err
	} else if !ok {
		return ErrNotFound
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO category_expenses (category_id, reference) VALUES (?, ?)`, int64(id), reference)
	if err != nil {
		return fmt.Errorf("link expense to category %d: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(r scanner) (core.Category, error) {
	var (
		c         core.Category
		id        int64
		parentID  sql.NullInt64
		sortOrder sql.NullInt64
	)
	if err := r.Scan(&id, &c.Name, &c.Description, &c.ColorCode, &parentID, &c.IsActive, &sortOrder); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scan category: %w", err)
	}
	c.ID = core.ID(id)
	if parentID.Valid {
		c.ParentID = core.IDPtr(core.ID(parentID.Int64))
	}
	if sortOrder.Valid {
		v := int(sortOrder.Int64)
		c.SortOrder = &v
	}
	return c, nil
}

func nullID(id *core.ID) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
