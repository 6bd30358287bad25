package google

import (
	"fmt"
	"strings"

	"finspect/internal/stubapi"
)

// parseSeedRows converts a values matrix (as returned by Sheets API) into
// seed rows. The first row is a header naming at least Name; Parent,
// Color and Description are optional. Rows are reordered so every parent
// precedes its children.
func parseSeedRows(values [][]interface{}) ([]stubapi.SeedCategory, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colName := indexOf(headers, "Name")
	if colName == -1 {
		return nil, fmt.Errorf("unexpected categories header: missing Name; got headers=%v", headers)
	}
	colParent := indexOf(headers, "Parent")
	colColor := firstIndex(headers, "Color", "Colour", "ColorCode")
	colDesc := indexOf(headers, "Description")

	var rows []stubapi.SeedCategory
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		name := safeGet(row, colName)
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		rows = append(rows, stubapi.SeedCategory{
			Name:        name,
			Parent:      safeGet(row, colParent),
			ColorCode:   safeGet(row, colColor),
			Description: safeGet(row, colDesc),
		})
	}
	return parentsFirst(rows), nil
}

// parentsFirst moves every row after its parent. Rows whose parent
// never appears keep their relative order at the end.
func parentsFirst(rows []stubapi.SeedCategory) []stubapi.SeedCategory {
	placed := make(map[string]bool, len(rows))
	out := make([]stubapi.SeedCategory, 0, len(rows))
	done := make([]bool, len(rows))
	for {
		progress := false
		for i, r := range rows {
			if done[i] {
				continue
			}
			p := strings.ToLower(r.Parent)
			if p == "" || placed[p] {
				out = append(out, r)
				placed[strings.ToLower(r.Name)] = true
				done[i] = true
				progress = true
			}
		}
		if !progress {
			break
		}
	}
	for i, r := range rows {
		if !done[i] {
			out = append(out, r)
		}
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func firstIndex(arr []string, targets ...string) int {
	for _, t := range targets {
		if i := indexOf(arr, t); i != -1 {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
