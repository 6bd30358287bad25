package hierarchy

import "finspect/internal/core"

// Statistics summarizes a flat list.
type Statistics struct {
	Total         int `json:"total"`
	Active        int `json:"active"`
	Inactive      int `json:"inactive"`
	TopLevel      int `json:"topLevel"`
	Subcategories int `json:"subcategories"`
}

// ComputeStatistics counts list in one pass.
func ComputeStatistics(list []core.Category) Statistics {
	var s Statistics
	for _, c := range list {
		s.Total++
		if c.IsActive {
			s.Active++
		} else {
			s.Inactive++
		}
		if c.ParentID == nil {
			s.TopLevel++
		} else {
			s.Subcategories++
		}
	}
	return s
}
