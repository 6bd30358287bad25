// Package stubapi is a reference implementation of the category API the
// finspect client talks to. It enforces the server side rules the client
// only pre-checks: validation, parent existence, cycles, sibling name
// uniqueness and the delete guards.
package stubapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"finspect/internal/apierr"
	"finspect/internal/core"
	"finspect/internal/hierarchy"
)

var errNoSuchRecord = errors.New("no such category record")

// Service applies the category rules on top of a Store.
type Service struct {
	store  Store
	logger *slog.Logger
	// mu serializes writes so rule checks and saves see the same state.
	mu sync.Mutex
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// List returns every category ordered by sort order, then name. Parent
// names are filled in from the listing.
func (s *Service) List(ctx context.Context) ([]core.Category, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, apierr.Wrap(apierr.Server, "failed to list categories", err)
	}
	names := make(map[core.ID]string, len(list))
	for _, c := range list {
		names[c.ID] = c.Name
	}
	for i := range list {
		if list[i].ParentID != nil {
			list[i].ParentName = names[*list[i].ParentID]
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if oa, ob := sortKey(a), sortKey(b); oa != ob {
			return oa < ob
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	return list, nil
}

// categories without an explicit order go last
func sortKey(c core.Category) int {
	if c.SortOrder == nil {
		return int(^uint(0) >> 1)
	}
	return *c.SortOrder
}

func (s *Service) Get(ctx context.Context, id core.ID) (core.Category, error) {
	list, err := s.List(ctx)
	if err != nil {
		return core.Category{}, err
	}
	for _, c := range list {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Category{}, apierr.NotFoundf("Category not found with id: %d", id)
}

func (s *Service) TopLevel(ctx context.Context) ([]core.Category, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Category, 0, len(list))
	for _, c := range list {
		if c.IsRoot() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) Subcategories(ctx context.Context, parentID core.ID) ([]core.Category, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	found := false
	out := []core.Category{}
	for _, c := range list {
		if c.ID == parentID {
			found = true
		}
		if c.HasParent(parentID) {
			out = append(out, c)
		}
	}
	if !found {
		return nil, apierr.NotFoundf("Category not found with id: %d", parentID)
	}
	return out, nil
}

// Search matches query case-insensitively against name and description.
// parentOnly restricts the result to root categories.
func (s *Service) Search(ctx context.Context, query string, parentOnly bool) ([]core.Category, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := []core.Category{}
	for _, c := range list {
		if parentOnly && !c.IsRoot() {
			continue
		}
		if q == "" || strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Description), q) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, in core.CategoryInput) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in = in.Normalize()
	idx, err := s.checkInput(ctx, nil, in)
	if err != nil {
		return core.Category{}, err
	}
	c, err := s.store.Insert(ctx, core.Category{
		Name:        in.Name,
		Description: in.Description,
		ColorCode:   in.ColorCode,
		ParentID:    in.ParentID,
		IsActive:    true,
		SortOrder:   in.SortOrder,
	})
	if err != nil {
		return core.Category{}, apierr.Wrap(apierr.Server, apierr.MsgCategoryCreateFailed, err)
	}
	s.logger.InfoContext(ctx, "Category created", "component", "stubapi", "id", c.ID, "name", c.Name)
	return withParentName(idx, c), nil
}

func (s *Service) Update(ctx context.Context, id core.ID, in core.CategoryInput) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.lookup(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	in = in.Normalize()
	idx, err := s.checkInput(ctx, &id, in)
	if err != nil {
		return core.Category{}, err
	}
	current.Name = in.Name
	current.Description = in.Description
	current.ColorCode = in.ColorCode
	current.ParentID = in.ParentID
	current.SortOrder = in.SortOrder
	if err := s.store.Save(ctx, current); err != nil {
		return core.Category{}, apierr.Wrap(apierr.Server, "failed to update category", err)
	}
	s.logger.InfoContext(ctx, "Category updated", "component", "stubapi", "id", id)
	return withParentName(idx, current), nil
}

// Delete deactivates id. It is refused while active subcategories or
// linked expenses exist.
func (s *Service) Delete(ctx context.Context, id core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	list, err := s.store.List(ctx)
	if err != nil {
		return apierr.Wrap(apierr.Server, "failed to list categories", err)
	}
	if hierarchy.NewIndex(list).HasActiveChildren(id) {
		return apierr.Conflictf("%s", apierr.MsgActiveChildren)
	}
	n, err := s.store.ExpenseCount(ctx, id)
	if err != nil {
		return apierr.Wrap(apierr.Server, "failed to count expenses", err)
	}
	if n > 0 {
		return apierr.Conflictf("Cannot delete category with %d associated expenses", n)
	}
	current.IsActive = false
	if err := s.store.Save(ctx, current); err != nil {
		return apierr.Wrap(apierr.Server, apierr.MsgCategoryDeleteFailed, err)
	}
	s.logger.InfoContext(ctx, "Category deactivated", "component", "stubapi", "id", id)
	return nil
}

func (s *Service) Activate(ctx context.Context, id core.ID) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.lookup(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	current.IsActive = true
	if err := s.store.Save(ctx, current); err != nil {
		return core.Category{}, apierr.Wrap(apierr.Server, "failed to activate category", err)
	}
	s.logger.InfoContext(ctx, "Category activated", "component", "stubapi", "id", id)
	list, err := s.store.List(ctx)
	if err != nil {
		return current, nil
	}
	return withParentName(hierarchy.NewIndex(list), current), nil
}

func (s *Service) lookup(ctx context.Context, id core.ID) (core.Category, error) {
	c, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Category{}, apierr.Wrap(apierr.Server, "failed to load category", err)
	}
	if !ok {
		return core.Category{}, apierr.NotFoundf("Category not found with id: %d", id)
	}
	return c, nil
}

// checkInput validates fields, the parent reference and sibling name
// uniqueness. id is nil on create.
func (s *Service) checkInput(ctx context.Context, id *core.ID, in core.CategoryInput) (*hierarchy.Index, error) {
	var verr *core.ValidationError
	if err := in.Validate(); errors.As(err, &verr) {
		return nil, apierr.FromValidation(verr)
	} else if err != nil {
		return nil, apierr.Wrap(apierr.Validation, err.Error(), err)
	}

	list, err := s.store.List(ctx)
	if err != nil {
		return nil, apierr.Wrap(apierr.Server, "failed to list categories", err)
	}
	idx := hierarchy.NewIndex(list)
	if err := idx.ValidateParent(id, in.ParentID); err != nil {
		e := apierr.As(err)
		if e.Kind == apierr.Validation {
			// reference errors are plain bad requests, not field validation
			return nil, &apierr.Error{Kind: e.Kind, Message: e.Message, Status: http.StatusBadRequest, Fields: e.Fields, Err: e.Err}
		}
		return nil, e
	}

	name := strings.ToLower(in.Name)
	for _, c := range list {
		if id != nil && c.ID == *id {
			continue
		}
		if !c.IsActive || strings.ToLower(c.Name) != name {
			continue
		}
		if sameParent(c.ParentID, in.ParentID) {
			return nil, apierr.Conflictf("%s (%s)", apierr.MsgCategoryNameExists, in.Name)
		}
	}
	return idx, nil
}

func sameParent(a, b *core.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func withParentName(idx *hierarchy.Index, c core.Category) core.Category {
	if c.ParentID == nil || idx == nil {
		return c
	}
	if p, ok := idx.Lookup(*c.ParentID); ok {
		c.ParentName = p.Name
	}
	return c
}
