package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"finspect/internal/stubapi"
)

func TestSeedsReadReturnsCopy(t *testing.T) {
	s := New([]stubapi.SeedCategory{{Name: "A"}, {Name: "B"}, {Name: "a"}})
	rows, err := s.ReadSeed(context.Background())
	if err != nil || len(rows) != 2 {
		t.Fatalf("unexpected rows: %v err=%v", rows, err)
	}
	rows[0].Name = "changed"
	again, _ := s.ReadSeed(context.Background())
	if again[0].Name != "A" {
		t.Fatalf("ReadSeed leaked internal slice")
	}
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	// No file -> defaults
	s := NewFromFiles(dir)
	rows, _ := s.ReadSeed(context.Background())
	if len(rows) == 0 {
		t.Fatalf("expected defaults when file missing")
	}

	content := "# header\nFood | #FF5733\nFood > Groceries | #00AA00 | weekly shop\nfood > groceries\n\nTransport\n"
	if err := os.WriteFile(filepath.Join(dir, SeedFile), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", SeedFile, err)
	}

	s = NewFromFiles(dir)
	rows, _ = s.ReadSeed(context.Background())
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %+v", rows)
	}
	g := rows[1]
	if g.Name != "Groceries" || g.Parent != "Food" || g.ColorCode != "#00AA00" || g.Description != "weekly shop" {
		t.Fatalf("unexpected row %+v", g)
	}
	if rows[2].Name != "Transport" || rows[2].Parent != "" || rows[2].ColorCode != "" {
		t.Fatalf("unexpected row %+v", rows[2])
	}
}

func TestDefaultsSeedAStore(t *testing.T) {
	rows, _ := NewFromFiles(t.TempDir()).ReadSeed(context.Background())
	n, err := stubapi.Seed(context.Background(), stubapi.NewMemoryStore(), rows)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if n != len(rows) {
		t.Fatalf("Seed() inserted %d of %d", n, len(rows))
	}
}
