package stubapi

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"finspect/internal/apierr"
	"finspect/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	_, err := Seed(context.Background(), store, []SeedCategory{
		{Name: "Food", ColorCode: "#FF5733"},
		{Name: "Groceries", Parent: "Food", ColorCode: "#00AA00", Description: "supermarket"},
		{Name: "Restaurants", Parent: "Food", ColorCode: "#AA0000"},
		{Name: "Transport", ColorCode: "#0000FF"},
	})
	require.NoError(t, err)
	return NewService(store, quietLogger()), store
}

func TestSeed_SkipsNonEmptyStore(t *testing.T) {
	_, store := seededService(t)
	n, err := Seed(context.Background(), store, []SeedCategory{{Name: "Other", ColorCode: "#111111"}})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSeed_UnknownParent(t *testing.T) {
	_, err := Seed(context.Background(), NewMemoryStore(), []SeedCategory{{Name: "Groceries", Parent: "Food"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown parent")
}

func TestService_ListFillsParentNames(t *testing.T) {
	svc, _ := seededService(t)
	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "Food", list[0].Name)
	assert.Equal(t, "Food", list[1].ParentName)
}

func TestService_ReadViews(t *testing.T) {
	ctx := context.Background()
	svc, _ := seededService(t)

	top, err := svc.TopLevel(ctx)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	subs, err := svc.Subcategories(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	_, err = svc.Subcategories(ctx, 99)
	assert.True(t, apierr.Is(err, apierr.NotFound))

	found, err := svc.Search(ctx, "SUPER", false)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Groceries", found[0].Name)

	roots, err := svc.Search(ctx, "o", true)
	require.NoError(t, err)
	assert.Len(t, roots, 2)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _ := seededService(t)

	c, err := svc.Create(ctx, core.CategoryInput{Name: " Coffee ", ColorCode: "#123456", ParentID: core.IDPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, core.ID(5), c.ID)
	assert.Equal(t, "Coffee", c.Name)
	assert.Equal(t, "Food", c.ParentName)
	assert.True(t, c.IsActive)
}

func TestService_CreateRules(t *testing.T) {
	ctx := context.Background()
	svc, _ := seededService(t)

	tests := []struct {
		name   string
		in     core.CategoryInput
		kind   apierr.Kind
		status int
	}{
		{"invalid fields", core.CategoryInput{Name: "A", ColorCode: "red"}, apierr.Validation, 422},
		{"unknown parent", core.CategoryInput{Name: "Coffee", ColorCode: "#123456", ParentID: core.IDPtr(42)}, apierr.Validation, 400},
		{"duplicate sibling", core.CategoryInput{Name: "groceries", ColorCode: "#123456", ParentID: core.IDPtr(1)}, apierr.Conflict, 409},
		{"duplicate root", core.CategoryInput{Name: "FOOD", ColorCode: "#123456"}, apierr.Conflict, 409},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			e := apierr.As(err)
			require.NotNil(t, e)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.status, e.HTTPStatus())
		})
	}

	// same name under a different parent is fine
	_, err := svc.Create(ctx, core.CategoryInput{Name: "Groceries", ColorCode: "#123456", ParentID: core.IDPtr(4)})
	assert.NoError(t, err)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, store := seededService(t)

	c, err := svc.Update(ctx, 2, core.CategoryInput{Name: "Groceries", ColorCode: "#00AA00", ParentID: core.IDPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, "Transport", c.ParentName)

	stored, ok, _ := store.Get(ctx, 2)
	require.True(t, ok)
	assert.True(t, stored.HasParent(4))

	_, err = svc.Update(ctx, 1, core.CategoryInput{Name: "Food", ColorCode: "#FF5733", ParentID: core.IDPtr(3)})
	assert.True(t, apierr.Is(err, apierr.Conflict))
	assert.Contains(t, err.Error(), "circular")

	_, err = svc.Update(ctx, 1, core.CategoryInput{Name: "Food", ColorCode: "#FF5733", ParentID: core.IDPtr(1)})
	assert.True(t, apierr.Is(err, apierr.Validation))

	_, err = svc.Update(ctx, 77, core.CategoryInput{Name: "Food", ColorCode: "#FF5733"})
	assert.True(t, apierr.Is(err, apierr.NotFound))

	// renaming to its own name is not a duplicate
	_, err = svc.Update(ctx, 3, core.CategoryInput{Name: "Restaurants", ColorCode: "#AB0000", ParentID: core.IDPtr(1)})
	assert.NoError(t, err)
}

func TestService_DeleteGuardsAndActivate(t *testing.T) {
	ctx := context.Background()
	svc, store := seededService(t)

	err := svc.Delete(ctx, 1)
	require.True(t, apierr.Is(err, apierr.Conflict))
	assert.Equal(t, apierr.MsgActiveChildren, apierr.As(err).Message)

	require.NoError(t, store.LinkExpense(ctx, 3, "exp-1"))
	err = svc.Delete(ctx, 3)
	require.True(t, apierr.Is(err, apierr.Conflict))
	assert.Contains(t, err.Error(), "associated expenses")

	require.NoError(t, svc.Delete(ctx, 2))
	c, _, _ := store.Get(ctx, 2)
	assert.False(t, c.IsActive)

	assert.True(t, apierr.Is(svc.Delete(ctx, 99), apierr.NotFound))

	c, err = svc.Activate(ctx, 2)
	require.NoError(t, err)
	assert.True(t, c.IsActive)
	assert.Equal(t, "Food", c.ParentName)
}

func TestService_InactiveNameCanBeReused(t *testing.T) {
	ctx := context.Background()
	svc, _ := seededService(t)
	require.NoError(t, svc.Delete(ctx, 4))
	_, err := svc.Create(ctx, core.CategoryInput{Name: "Transport", ColorCode: "#0000FF"})
	assert.NoError(t, err)
}
