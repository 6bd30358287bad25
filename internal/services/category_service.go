package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"finspect/internal/apierr"
	"finspect/internal/categories"
	"finspect/internal/core"
	"finspect/internal/hierarchy"
	"finspect/internal/metrics"

	"golang.org/x/sync/singleflight"
)

// State of one logical action.
type State int

const (
	Idle State = iota
	Pending
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Failed:
		return "failed"
	}
	return "idle"
}

// MarshalText renders the state as its name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a state name; anything unknown is Idle.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pending":
		*s = Pending
	case "success":
		*s = Success
	case "failed":
		*s = Failed
	default:
		*s = Idle
	}
	return nil
}

// Status is the last known state of an action key.
type Status struct {
	State     State
	Err       error
	UpdatedAt time.Time
}

// Snapshot is one immutable derivation of the flat list.
type Snapshot struct {
	Categories []core.Category
	Index      *hierarchy.Index
	Forest     hierarchy.Forest
	Options    []hierarchy.Option
	Stats      hierarchy.Statistics
	LoadedAt   time.Time
}

// DefaultCallTimeout bounds one shared load or mutation. A mutation may
// make several repository calls.
const DefaultCallTimeout = 30 * time.Second

// CategoryService coordinates reads and mutations against the category
// repository and keeps the derived views current. Identical concurrent
// mutations share a single call to the repository.
type CategoryService struct {
	repo        categories.Repository
	indent      string
	logger      *slog.Logger
	now         func() time.Time
	callTimeout time.Duration

	mu   sync.RWMutex
	snap *Snapshot
	// version counts local patches; a fetch that started before one must
	// not replace the patched snapshot.
	version uint64

	flight   singleflight.Group
	statusMu sync.Mutex
	status   map[string]Status
}

// ServiceOption customizes a CategoryService.
type ServiceOption func(*CategoryService)

// WithIndent sets the option label indent unit.
func WithIndent(indent string) ServiceOption {
	return func(s *CategoryService) { s.indent = indent }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *CategoryService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCallTimeout bounds each shared call. Callers that stop waiting do
// not cancel a call other callers have joined.
func WithCallTimeout(d time.Duration) ServiceOption {
	return func(s *CategoryService) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

func NewCategoryService(repo categories.Repository, opts ...ServiceOption) *CategoryService {
	s := &CategoryService{
		repo:        repo,
		indent:      hierarchy.DefaultIndent,
		logger:      slog.Default(),
		now:         time.Now,
		callTimeout: DefaultCallTimeout,
		status:      make(map[string]Status),
	}
	for _, o := range opts {
		o(s)
	}
	s.snap = s.derive(nil)
	s.snap.LoadedAt = time.Time{}
	return s
}

// Action keys used for single-flight and status.
func CreateKey(in core.CategoryInput) string {
	parent := "root"
	if in.ParentID != nil {
		parent = in.ParentID.String()
	}
	return "create:" + parent + ":" + strings.ToLower(strings.TrimSpace(in.Name))
}

func UpdateKey(id core.ID) string   { return "update:" + id.String() }
func DeleteKey(id core.ID) string   { return "delete:" + id.String() }
func ActivateKey(id core.ID) string { return "activate:" + id.String() }

// inputKey identifies the full payload so that only identical writes share
// a call.
func inputKey(in core.CategoryInput) string {
	parent, sort := "-", "-"
	if in.ParentID != nil {
		parent = in.ParentID.String()
	}
	if in.SortOrder != nil {
		sort = strconv.Itoa(*in.SortOrder)
	}
	return strings.Join([]string{in.Name, in.Description, strings.ToUpper(in.ColorCode), parent, sort}, "\x1f")
}

// Snapshot returns the current derived views. It never blocks on I/O.
func (s *CategoryService) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Loaded reports whether a list was ever fetched successfully.
func (s *CategoryService) Loaded() bool {
	return !s.Snapshot().LoadedAt.IsZero()
}

// Load fetches the list, honouring the repository cache, and rebuilds.
func (s *CategoryService) Load(ctx context.Context) (*Snapshot, error) {
	return s.load(ctx, "load")
}

// Refresh drops cached reads and loads again. It never joins a load that
// started before the invalidation.
func (s *CategoryService) Refresh(ctx context.Context) (*Snapshot, error) {
	s.repo.Invalidate()
	return s.load(ctx, "refresh")
}

func (s *CategoryService) load(ctx context.Context, key string) (*Snapshot, error) {
	v, _, err := s.share(ctx, key, func(ctx context.Context) (any, error) {
		since := s.currentVersion()
		list, err := s.repo.FetchAll(ctx)
		if err != nil {
			return nil, err
		}
		return s.replaceSince(list, since), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// share runs fn once per key among concurrent callers. fn gets a context
// detached from any single caller and bounded by the call timeout; each
// caller stops waiting when its own ctx ends.
func (s *CategoryService) share(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, apierr.FromTransport(err)
	}
	ch := s.flight.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
		defer cancel()
		return fn(fctx)
	})
	select {
	case r := <-ch:
		return r.Val, r.Shared, r.Err
	case <-ctx.Done():
		return nil, false, apierr.FromTransport(ctx.Err())
	}
}

func (s *CategoryService) ensureLoaded(ctx context.Context) (*Snapshot, error) {
	if snap := s.Snapshot(); !snap.LoadedAt.IsZero() {
		return snap, nil
	}
	return s.Load(ctx)
}

// Status returns the last state recorded for an action key.
func (s *CategoryService) Status(key string) Status {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status[key]
}

func (s *CategoryService) setStatus(key string, st State, err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status[key] = Status{State: st, Err: err, UpdatedAt: s.now()}
}

// CreateCategory validates in, creates it and returns the stored record.
func (s *CategoryService) CreateCategory(ctx context.Context, in core.CategoryInput) (core.Category, error) {
	in = in.Normalize()
	key := CreateKey(in)
	return s.mutate(ctx, "create", key, key+"|"+inputKey(in), func(ctx context.Context) (core.Category, error) {
		if err := in.Validate(); err != nil {
			return core.Category{}, apierr.As(err)
		}
		snap, err := s.ensureLoaded(ctx)
		if err != nil {
			return core.Category{}, err
		}
		if err := snap.Index.ValidateParent(nil, in.ParentID); err != nil {
			return core.Category{}, err
		}
		created, err := s.repo.Create(ctx, in)
		if err != nil {
			return core.Category{}, err
		}
		s.settle(ctx, func(list []core.Category) []core.Category {
			if created.ID == 0 {
				return list
			}
			return append(list, created)
		})
		return created, nil
	})
}

// UpdateCategory validates in, rejects parent moves that would form a
// cycle, then updates the record.
func (s *CategoryService) UpdateCategory(ctx context.Context, id core.ID, in core.CategoryInput) (core.Category, error) {
	in = in.Normalize()
	key := UpdateKey(id)
	return s.mutate(ctx, "update", key, key+"|"+inputKey(in), func(ctx context.Context) (core.Category, error) {
		if err := in.Validate(); err != nil {
			return core.Category{}, apierr.As(err)
		}
		snap, err := s.ensureLoaded(ctx)
		if err != nil {
			return core.Category{}, err
		}
		if err := snap.Index.ValidateParent(&id, in.ParentID); err != nil {
			return core.Category{}, err
		}
		updated, err := s.repo.Update(ctx, id, in)
		if err != nil {
			return core.Category{}, err
		}
		if updated.ID == 0 {
			prev, _ := snap.Index.Lookup(id)
			updated = prev
			updated.ID = id
			updated.Name, updated.Description, updated.ColorCode = in.Name, in.Description, in.ColorCode
			updated.ParentID, updated.SortOrder = in.ParentID, in.SortOrder
		}
		s.settle(ctx, func(list []core.Category) []core.Category {
			return replaceByID(list, updated)
		})
		return updated, nil
	})
}

// DeleteCategory soft deletes id. A category with active children is
// rejected without calling the repository; other conflicts, such as
// attached expenses, are the repository's decision.
func (s *CategoryService) DeleteCategory(ctx context.Context, id core.ID) error {
	_, err := s.mutate(ctx, "delete", DeleteKey(id), DeleteKey(id), func(ctx context.Context) (core.Category, error) {
		snap, err := s.ensureLoaded(ctx)
		if err != nil {
			return core.Category{}, err
		}
		if snap.Index.HasActiveChildren(id) {
			return core.Category{}, apierr.Conflictf("%s", apierr.MsgActiveChildren)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return core.Category{}, err
		}
		s.settle(ctx, func(list []core.Category) []core.Category {
			return setActive(list, id, false)
		})
		return core.Category{}, nil
	})
	return err
}

// ActivateCategory re-enables a soft deleted category.
func (s *CategoryService) ActivateCategory(ctx context.Context, id core.ID) (core.Category, error) {
	return s.mutate(ctx, "activate", ActivateKey(id), ActivateKey(id), func(ctx context.Context) (core.Category, error) {
		if _, err := s.ensureLoaded(ctx); err != nil {
			return core.Category{}, err
		}
		activated, err := s.repo.Activate(ctx, id)
		if err != nil {
			return core.Category{}, err
		}
		s.settle(ctx, func(list []core.Category) []core.Category {
			if activated.ID == id {
				return replaceByID(list, activated)
			}
			return setActive(list, id, true)
		})
		if activated.ID != id {
			if c, ok := s.Snapshot().Index.Lookup(id); ok {
				activated = c
			}
		}
		return activated, nil
	})
}

// mutate records status under key and shares fn among callers with the
// same flightKey.
func (s *CategoryService) mutate(ctx context.Context, action, key, flightKey string, fn func(context.Context) (core.Category, error)) (core.Category, error) {
	v, shared, err := s.share(ctx, flightKey, func(ctx context.Context) (any, error) {
		s.setStatus(key, Pending, nil)
		started := s.now()
		c, err := fn(ctx)
		if err != nil {
			s.setStatus(key, Failed, err)
			metrics.Mutations.WithLabelValues(action, Failed.String()).Inc()
			s.logger.WarnContext(ctx, "Category mutation failed",
				"component", "categories", "operation", action, "key", key,
				"kind", apierr.KindOf(err).String(), "error", err)
			return core.Category{}, err
		}
		s.setStatus(key, Success, nil)
		metrics.Mutations.WithLabelValues(action, Success.String()).Inc()
		s.logger.InfoContext(ctx, "Category mutation succeeded",
			"component", "categories", "operation", action, "key", key,
			"duration_ms", s.now().Sub(started).Milliseconds())
		return c, nil
	})
	if shared {
		metrics.SharedMutations.WithLabelValues(action).Inc()
	}
	if err != nil {
		return core.Category{}, err
	}
	return v.(core.Category), nil
}

// settle applies a confirmed change locally, then replaces the list with a
// fresh fetch when the repository is reachable.
func (s *CategoryService) settle(ctx context.Context, patch func([]core.Category) []core.Category) {
	s.mu.Lock()
	list := patch(append([]core.Category(nil), s.snap.Categories...))
	s.snap = s.derive(list)
	s.version++
	since := s.version
	s.mu.Unlock()

	fresh, err := s.repo.FetchAll(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Refresh after mutation failed, keeping local state",
			"component", "categories", "error", err)
		return
	}
	s.replaceSince(fresh, since)
}

func (s *CategoryService) currentVersion() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// replaceSince installs list unless a local patch landed after since, in
// which case the current snapshot is kept and returned.
func (s *CategoryService) replaceSince(list []core.Category, since uint64) *Snapshot {
	snap := s.derive(list)
	s.mu.Lock()
	if s.version != since {
		cur := s.snap
		s.mu.Unlock()
		s.logger.Debug("Discarding category list fetched before a local change",
			"component", "categories")
		return cur
	}
	s.snap = snap
	s.mu.Unlock()
	metrics.SetCategoryCounts(snap.Stats.Total, snap.Stats.Active, snap.Stats.Inactive, snap.Stats.TopLevel, snap.Stats.Subcategories)
	return snap
}

func (s *CategoryService) derive(list []core.Category) *Snapshot {
	idx := hierarchy.NewIndex(list)
	forest := idx.Forest()
	cats := idx.Categories()
	return &Snapshot{
		Categories: cats,
		Index:      idx,
		Forest:     forest,
		Options:    hierarchy.Flatten(forest, s.indent),
		Stats:      hierarchy.ComputeStatistics(cats),
		LoadedAt:   s.now(),
	}
}

// Category returns one category, from the snapshot when present.
func (s *CategoryService) Category(ctx context.Context, id core.ID) (core.Category, error) {
	if c, ok := s.Snapshot().Index.Lookup(id); ok {
		return c, nil
	}
	return s.repo.FetchByID(ctx, id)
}

func (s *CategoryService) TopLevel(ctx context.Context) ([]core.Category, error) {
	return s.repo.TopLevel(ctx)
}

func (s *CategoryService) Subcategories(ctx context.Context, parentID core.ID) ([]core.Category, error) {
	return s.repo.Subcategories(ctx, parentID)
}

func (s *CategoryService) Search(ctx context.Context, query string, parentOnly bool) ([]core.Category, error) {
	return s.repo.Search(ctx, query, parentOnly)
}

// ParentOptions lists valid parents for the category being edited, or
// every category when editing is nil.
func (s *CategoryService) ParentOptions(ctx context.Context, editing *core.ID) ([]hierarchy.Option, error) {
	snap, err := s.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return hierarchy.ParentOptions(snap.Index, editing, s.indent), nil
}

// ActiveOptions lists categories selectable on an expense.
func (s *CategoryService) ActiveOptions(ctx context.Context) ([]hierarchy.Option, error) {
	snap, err := s.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return hierarchy.ActiveOptions(snap.Forest, s.indent), nil
}

// Path returns the ancestor chain and depth of id.
func (s *CategoryService) Path(ctx context.Context, id core.ID) ([]core.Category, int, error) {
	snap, err := s.ensureLoaded(ctx)
	if err != nil {
		return nil, -1, err
	}
	path := snap.Index.AncestorPath(id)
	if len(path) == 0 {
		return nil, -1, apierr.NotFoundf("category %s not found", id)
	}
	return path, len(path) - 1, nil
}

// Close closes the repository when it holds resources.
func (s *CategoryService) Close() error {
	if c, ok := s.repo.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close repository: %w", err)
		}
	}
	return nil
}

func replaceByID(list []core.Category, c core.Category) []core.Category {
	for i := range list {
		if list[i].ID == c.ID {
			list[i] = c
			return list
		}
	}
	return append(list, c)
}

func setActive(list []core.Category, id core.ID, active bool) []core.Category {
	for i := range list {
		if list[i].ID == id {
			list[i].IsActive = active
		}
	}
	return list
}
