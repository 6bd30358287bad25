package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"finspect/internal/actor"
	"finspect/internal/apierr"
	"finspect/internal/core"
	"finspect/internal/log"
	"finspect/internal/services"
)

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

// fail renders err and logs it at a level matching its kind.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	e := apierr.As(err)
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Category request failed",
		e, e.Kind.String(), op, log.NewFields().WithPath(r.URL.Path))
	ErrorResponse(e).Write(w)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	snap, err := s.svc.Load(ctx)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(listView{
		Categories: toCategoryViews(snap.Index.Categories()),
		Stats:      snap.Stats,
		LoadedAt:   snap.LoadedAt,
	}).Write(w)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	snap, err := s.svc.Load(ctx)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(toNodeViews(snap.Forest)).Write(w)
}

// handleOptions serves selection lists. With active=true it lists the
// categories an expense may use; otherwise the valid parents for the
// category named by editing, or all categories when editing is absent.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	activeOnly, err := ParseBool(r, "active", false)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	editing, err := ParseOptionalID(r, "editing")
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}

	if activeOnly {
		opts, err := s.svc.ActiveOptions(ctx)
		if err != nil {
			s.fail(w, r, log.OpList, err)
			return
		}
		NewJSONResponse().Data(opts).Write(w)
		return
	}
	opts, err := s.svc.ParentOptions(ctx, editing)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(opts).Write(w)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	snap, err := s.svc.Load(ctx)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(snap.Stats).Write(w)
}

// handleStatus reports the last state of a mutation key such as update:3.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		BadRequestError("key is required").Write(w)
		return
	}
	NewJSONResponse().Data(toStatusView(key, s.svc.Status(key))).Write(w)
}

func (s *Server) handleTopLevel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	list, err := s.svc.TopLevel(ctx)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(toCategoryViews(list)).Write(w)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	parentOnly, err := ParseBool(r, "parentOnly", false)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	list, err := s.svc.Search(ctx, sanitizeInput(r.URL.Query().Get("query")), parentOnly)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(toCategoryViews(list)).Write(w)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	id, err := ParsePathID(r)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	c, err := s.svc.Category(ctx, id)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(toCategoryView(c)).Write(w)
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	id, err := ParsePathID(r)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	path, depth, err := s.svc.Path(ctx, id)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(toPathView(id, path, depth)).Write(w)
}

func (s *Server) handleSubcategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	id, err := ParsePathID(r)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	list, err := s.svc.Subcategories(ctx, id)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(toCategoryViews(list)).Write(w)
}

// openView binds a view to the request with the caller's actor attached.
// The view closes when the client goes away.
func (s *Server) openView(r *http.Request) (*services.View, actor.Actor, context.CancelFunc) {
	who := actor.FromRequest(r)
	ctx, cancel := s.requestContext(r)
	view := s.svc.OpenView(actor.NewContext(ctx, who))
	return view, who, func() {
		view.Close()
		cancel()
	}
}

// settled handles a view result that arrived after the client left.
func (s *Server) settled(w http.ResponseWriter, r *http.Request, op string, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, services.ErrViewClosed) {
		if r.Context().Err() == nil {
			// the client is still here, so our own deadline closed the view
			s.fail(w, r, op, apierr.Wrap(apierr.Timeout, "", err))
			return false
		}
		log.FromContext(r.Context()).InfoContext(r.Context(), "Client left before the result arrived",
			log.FieldOperation, op)
		return false
	}
	s.fail(w, r, op, err)
	return false
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := DecodeCategoryInput(w, r)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	view, who, done := s.openView(r)
	defer done()

	c, err := view.Create(in)
	if !s.settled(w, r, log.OpCreate, err) {
		return
	}
	s.events.LogCategoryMutation(r.Context(), log.OpCreate, c, who.ID)
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/categories/"+c.ID.String()).
		Data(toCategoryView(c)).Write(w)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := ParsePathID(r)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	in, err := DecodeCategoryInput(w, r)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	view, who, done := s.openView(r)
	defer done()

	c, err := view.Update(id, in)
	if !s.settled(w, r, log.OpUpdate, err) {
		return
	}
	s.events.LogCategoryMutation(r.Context(), log.OpUpdate, c, who.ID)
	NewJSONResponse().Data(toCategoryView(c)).Write(w)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := ParsePathID(r)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	view, who, done := s.openView(r)
	defer done()

	if !s.settled(w, r, log.OpDelete, view.Delete(id)) {
		return
	}
	s.events.LogCategoryMutation(r.Context(), log.OpDelete, core.Category{ID: id}, who.ID)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	id, err := ParsePathID(r)
	if err != nil {
		s.fail(w, r, log.OpActivate, err)
		return
	}
	view, who, done := s.openView(r)
	defer done()

	c, err := view.Activate(id)
	if !s.settled(w, r, log.OpActivate, err) {
		return
	}
	s.events.LogCategoryMutation(r.Context(), log.OpActivate, c, who.ID)
	NewJSONResponse().Data(toCategoryView(c)).Write(w)
}

// handleRefresh drops cached reads and loads the list again.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	snap, err := s.svc.Refresh(ctx)
	if err != nil {
		s.fail(w, r, log.OpRefresh, err)
		return
	}
	NewJSONResponse().Data(map[string]any{
		"categories": snap.Stats.Total,
		"loadedAt":   snap.LoadedAt,
	}).Write(w)
}
