package rest

import (
	"encoding/json"

	"finspect/internal/core"
)

type (
	wireParent struct {
		ID   core.ID `json:"id"`
		Name string  `json:"name,omitempty"`
	}

	// wireCategory is the category document returned by the API. Parents
	// arrive either nested or as a flat parentId.
	wireCategory struct {
		ID          core.ID     `json:"id"`
		Name        string      `json:"name"`
		Description string      `json:"description"`
		ColorCode   string      `json:"colorCode"`
		Parent      *wireParent `json:"parent"`
		ParentID    *core.ID    `json:"parentId"`
		IsActive    *bool       `json:"isActive"`
		SortOrder   *int        `json:"sortOrder"`
	}

	// wireInput is the create and update payload.
	wireInput struct {
		Name        string   `json:"name"`
		Description string   `json:"description,omitempty"`
		ColorCode   string   `json:"colorCode"`
		ParentID    *core.ID `json:"parentId"`
		SortOrder   *int     `json:"sortOrder,omitempty"`
	}

	pagedList struct {
		Content []wireCategory `json:"content"`
	}
)

func (w wireCategory) toCore() core.Category {
	c := core.Category{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		ColorCode:   w.ColorCode,
		IsActive:    true,
		SortOrder:   w.SortOrder,
	}
	if w.IsActive != nil {
		c.IsActive = *w.IsActive
	}
	switch {
	case w.Parent != nil:
		c.ParentID = core.IDPtr(w.Parent.ID)
		c.ParentName = w.Parent.Name
	case w.ParentID != nil:
		c.ParentID = core.IDPtr(*w.ParentID)
	}
	return c
}

func toWireInput(in core.CategoryInput) wireInput {
	in = in.Normalize()
	return wireInput{
		Name:        in.Name,
		Description: in.Description,
		ColorCode:   in.ColorCode,
		ParentID:    in.ParentID,
		SortOrder:   in.SortOrder,
	}
}

// decodeList accepts a bare array or a paged {"content": [...]} document.
func decodeList(body []byte) ([]core.Category, error) {
	var items []wireCategory
	if err := json.Unmarshal(body, &items); err != nil {
		var page pagedList
		if perr := json.Unmarshal(body, &page); perr != nil {
			return nil, err
		}
		items = page.Content
	}
	out := make([]core.Category, 0, len(items))
	for _, w := range items {
		out = append(out, w.toCore())
	}
	return out, nil
}

func decodeOne(body []byte) (core.Category, error) {
	var w wireCategory
	if err := json.Unmarshal(body, &w); err != nil {
		return core.Category{}, err
	}
	return w.toCore(), nil
}
