package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ports "finspect/internal/sheets"
	"finspect/internal/stubapi"
)

// SeedFile is the file NewFromFiles reads inside its base directory.
const SeedFile = "seed_categories.txt"

// Seeds is a fixed, in-memory SeedReader.
type Seeds struct {
	mu   sync.Mutex
	rows []stubapi.SeedCategory
}

var _ ports.SeedReader = (*Seeds)(nil)

func New(rows []stubapi.SeedCategory) *Seeds {
	return &Seeds{rows: dedupe(rows)}
}

// NewFromFiles reads base/seed_categories.txt. Each line is
//
//	Parent > Name | #RRGGBB | description
//
// where everything but Name is optional. Blank lines and lines starting
// with # are skipped. A missing or empty file yields the default set.
func NewFromFiles(base string) *Seeds {
	rows := readLines(filepath.Join(base, SeedFile))
	if len(rows) == 0 {
		rows = defaultRows()
	}
	return New(rows)
}

// ReadSeed returns a copy of the rows.
func (s *Seeds) ReadSeed(_ context.Context) ([]stubapi.SeedCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stubapi.SeedCategory(nil), s.rows...), nil
}

func defaultRows() []stubapi.SeedCategory {
	return []stubapi.SeedCategory{
		{Name: "Housing", ColorCode: "#795548"},
		{Name: "Rent", Parent: "Housing", ColorCode: "#8D6E63"},
		{Name: "Utilities", Parent: "Housing", ColorCode: "#A1887F"},
		{Name: "Food", ColorCode: "#FF5733"},
		{Name: "Groceries", Parent: "Food", ColorCode: "#4CAF50"},
		{Name: "Restaurants", Parent: "Food", ColorCode: "#FF9800"},
		{Name: "Transport", ColorCode: "#2196F3"},
	}
}

func readLines(path string) []stubapi.SeedCategory {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []stubapi.SeedCategory
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if row, ok := parseLine(line); ok {
			out = append(out, row)
		}
	}
	return out
}

func parseLine(line string) (stubapi.SeedCategory, bool) {
	parts := strings.SplitN(line, "|", 3)
	var row stubapi.SeedCategory
	path := strings.TrimSpace(parts[0])
	if parent, name, ok := strings.Cut(path, ">"); ok {
		row.Parent = strings.TrimSpace(parent)
		row.Name = strings.TrimSpace(name)
	} else {
		row.Name = path
	}
	if len(parts) > 1 {
		row.ColorCode = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		row.Description = strings.TrimSpace(parts[2])
	}
	return row, row.Name != ""
}

// dedupe drops repeated parent/name pairs, first occurrence wins.
func dedupe(in []stubapi.SeedCategory) []stubapi.SeedCategory {
	seen := map[string]struct{}{}
	out := make([]stubapi.SeedCategory, 0, len(in))
	for _, r := range in {
		key := strings.ToLower(r.Parent) + ">" + strings.ToLower(r.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
