// This file implements utilities for parsing and validating HTTP request
// data: path ids, query flags and category payloads.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"finspect/internal/apierr"
	"finspect/internal/core"
)

const maxBodyBytes = 64 << 10

// categoryPayload is the create and update body accepted from the SPA.
type categoryPayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ColorCode   string   `json:"colorCode"`
	ParentID    *core.ID `json:"parentId"`
	SortOrder   *int     `json:"sortOrder"`
}

func (p categoryPayload) input() core.CategoryInput {
	return core.CategoryInput{
		Name:        sanitizeInput(p.Name),
		Description: sanitizeInput(p.Description),
		ColorCode:   strings.TrimSpace(p.ColorCode),
		ParentID:    p.ParentID,
		SortOrder:   p.SortOrder,
	}
}

// ParsePathID reads the {id} path value.
func ParsePathID(r *http.Request) (core.ID, error) {
	raw := r.PathValue("id")
	id, err := core.ParseID(raw)
	if err != nil {
		return 0, apierr.New(apierr.Validation, fmt.Sprintf("invalid category id %q", raw))
	}
	return id, nil
}

// ParseOptionalID reads an id query parameter. Missing or empty yields nil.
func ParseOptionalID(r *http.Request, key string) (*core.ID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := core.ParseID(raw)
	if err != nil {
		return nil, apierr.New(apierr.Validation, fmt.Sprintf("invalid %s %q", key, raw))
	}
	return &id, nil
}

// ParseBool reads a boolean query parameter, defaulting when absent.
func ParseBool(r *http.Request, key string, def bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, apierr.New(apierr.Validation, fmt.Sprintf("invalid %s %q", key, raw))
	}
	return v, nil
}

// DecodeCategoryInput reads a JSON category payload. Unknown fields are
// rejected and at most maxBodyBytes are read.
func DecodeCategoryInput(w http.ResponseWriter, r *http.Request) (core.CategoryInput, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return core.CategoryInput{}, apierr.New(apierr.Validation, "request body must be JSON")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	var p categoryPayload
	if err := dec.Decode(&p); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return core.CategoryInput{}, apierr.New(apierr.Validation, "request body too large")
		case errors.Is(err, io.EOF):
			return core.CategoryInput{}, apierr.New(apierr.Validation, "request body is empty")
		}
		return core.CategoryInput{}, apierr.Wrap(apierr.Validation, "malformed request body", err)
	}
	if dec.More() {
		return core.CategoryInput{}, apierr.New(apierr.Validation, "request body must hold a single object")
	}
	return p.input(), nil
}

// sanitizeInput trims and drops control characters.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s))
}
