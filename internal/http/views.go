package http

import (
	"time"

	"finspect/internal/core"
	"finspect/internal/hierarchy"
	"finspect/internal/services"
)

type (
	categoryView struct {
		ID          core.ID  `json:"id"`
		Name        string   `json:"name"`
		Description string   `json:"description"`
		ColorCode   string   `json:"colorCode"`
		ParentID    *core.ID `json:"parentId"`
		ParentName  string   `json:"parentName,omitempty"`
		IsActive    bool     `json:"isActive"`
		SortOrder   *int     `json:"sortOrder,omitempty"`
	}

	nodeView struct {
		categoryView
		HasSubcategories bool       `json:"hasSubcategories"`
		SubtreeSize      int        `json:"subtreeSize"`
		Children         []nodeView `json:"children"`
	}

	pathView struct {
		ID    core.ID        `json:"id"`
		Depth int            `json:"depth"`
		Path  []categoryView `json:"path"`
		Label string         `json:"label"`
	}

	listView struct {
		Categories []categoryView        `json:"categories"`
		Stats      hierarchy.Statistics `json:"stats"`
		LoadedAt   time.Time            `json:"loadedAt"`
	}

	statusView struct {
		Key       string         `json:"key"`
		State     services.State `json:"state"`
		Error     *ErrorDocument `json:"error,omitempty"`
		UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
	}
)

func toCategoryView(c core.Category) categoryView {
	return categoryView{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		ColorCode:   c.ColorCode,
		ParentID:    c.ParentID,
		ParentName:  c.ParentName,
		IsActive:    c.IsActive,
		SortOrder:   c.SortOrder,
	}
}

func toCategoryViews(list []core.Category) []categoryView {
	out := make([]categoryView, 0, len(list))
	for _, c := range list {
		out = append(out, toCategoryView(c))
	}
	return out
}

func toNodeViews(nodes []*hierarchy.Node) []nodeView {
	out := make([]nodeView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeView{
			categoryView:     toCategoryView(n.Category),
			HasSubcategories: n.HasChildren(),
			SubtreeSize:      n.Size(),
			Children:         toNodeViews(n.Children),
		})
	}
	return out
}

func toPathView(id core.ID, path []core.Category, depth int) pathView {
	v := pathView{ID: id, Depth: depth, Path: toCategoryViews(path)}
	for i, c := range path {
		if i > 0 {
			v.Label += " > "
		}
		v.Label += c.Name
	}
	return v
}

func toStatusView(key string, st services.Status) statusView {
	v := statusView{Key: key, State: st.State}
	if st.Err != nil {
		doc := NewErrorDocument(st.Err)
		v.Error = &doc
	}
	if !st.UpdatedAt.IsZero() {
		t := st.UpdatedAt
		v.UpdatedAt = &t
	}
	return v
}
