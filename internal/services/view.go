package services

import (
	"context"
	"errors"
	"sync"

	"finspect/internal/core"
)

// ErrViewClosed is returned when a result arrives after its view closed.
// The result is discarded.
var ErrViewClosed = errors.New("view closed")

// View is the state held by one consumer, such as a page or a request.
// Results that complete after Close are never applied to it.
type View struct {
	svc    *CategoryService
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	snap   *Snapshot
}

// OpenView creates a view bound to ctx. Cancelling ctx closes the view.
func (s *CategoryService) OpenView(ctx context.Context) *View {
	vctx, cancel := context.WithCancel(ctx)
	return &View{svc: s, ctx: vctx, cancel: cancel}
}

// Context is cancelled once the view closes.
func (v *View) Context() context.Context { return v.ctx }

// Close abandons the view. Its outstanding calls stop waiting; a shared
// call still completes for its other callers.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	v.cancel()
}

// Closed reports whether late results will be dropped.
func (v *View) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed || v.ctx.Err() != nil
}

// Snapshot returns the last snapshot applied to this view.
func (v *View) Snapshot() *Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

// Load fetches through the service and applies the result if the view is
// still open.
func (v *View) Load() (*Snapshot, error) {
	snap, err := v.svc.Load(v.ctx)
	if err != nil {
		if v.Closed() {
			return nil, ErrViewClosed
		}
		return nil, err
	}
	if !v.apply(snap) {
		return nil, ErrViewClosed
	}
	return snap, nil
}

// Create runs a create on behalf of the view.
func (v *View) Create(in core.CategoryInput) (core.Category, error) {
	c, err := v.svc.CreateCategory(v.ctx, in)
	return c, v.settle(err)
}

// Update runs an update on behalf of the view.
func (v *View) Update(id core.ID, in core.CategoryInput) (core.Category, error) {
	c, err := v.svc.UpdateCategory(v.ctx, id, in)
	return c, v.settle(err)
}

// Delete runs a delete on behalf of the view.
func (v *View) Delete(id core.ID) error {
	return v.settle(v.svc.DeleteCategory(v.ctx, id))
}

// Activate runs an activate on behalf of the view.
func (v *View) Activate(id core.ID) (core.Category, error) {
	c, err := v.svc.ActivateCategory(v.ctx, id)
	return c, v.settle(err)
}

// settle applies the service snapshot after a mutation. The mutation itself
// is not undone when the view has gone.
func (v *View) settle(err error) error {
	if err != nil {
		if v.Closed() {
			return ErrViewClosed
		}
		return err
	}
	if !v.apply(v.svc.Snapshot()) {
		return ErrViewClosed
	}
	return nil
}

func (v *View) apply(snap *Snapshot) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.ctx.Err() != nil {
		return false
	}
	v.snap = snap
	return true
}
