package hierarchy

import (
	"math/rand"
	"strings"
	"testing"

	"finspect/internal/apierr"
	"finspect/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cat(id core.ID, name string, parent *core.ID) core.Category {
	return core.Category{ID: id, Name: name, ColorCode: "#112233", ParentID: parent, IsActive: true}
}

func p(id core.ID) *core.ID { return core.IDPtr(id) }

// Food(1) > Groceries(2) > Organic(3); Transport(4) > Fuel(5)
func sample() []core.Category {
	return []core.Category{
		cat(1, "Food", nil),
		cat(2, "Groceries", p(1)),
		cat(3, "Organic", p(2)),
		cat(4, "Transport", nil),
		cat(5, "Fuel", p(4)),
	}
}

func TestBuildForest_Basic(t *testing.T) {
	f := BuildForest(sample())

	require.Len(t, f, 2)
	assert.Equal(t, "Food", f[0].Name)
	assert.Equal(t, "Transport", f[1].Name)
	require.Len(t, f[0].Children, 1)
	assert.Equal(t, "Groceries", f[0].Children[0].Name)
	require.Len(t, f[0].Children[0].Children, 1)
	assert.Equal(t, "Organic", f[0].Children[0].Children[0].Name)
	assert.Equal(t, 5, f.Count())
	assert.Equal(t, 3, f[0].Size())
	assert.True(t, f[0].HasChildren())
	assert.Equal(t, "Fuel", f.Find(5).Name)
	assert.Nil(t, f.Find(99))
}

func TestBuildForest_Empty(t *testing.T) {
	assert.Empty(t, BuildForest(nil))
	assert.Empty(t, Flatten(BuildForest(nil), DefaultIndent))
}

func TestBuildForest_OrphanBecomesRoot(t *testing.T) {
	f := BuildForest([]core.Category{cat(1, "A", nil), cat(2, "B", p(99))})
	require.Len(t, f, 2)
	assert.Equal(t, core.ID(1), f[0].ID)
	assert.Equal(t, core.ID(2), f[1].ID)
}

func TestBuildForest_PreservesSiblingOrder(t *testing.T) {
	list := []core.Category{
		cat(10, "Root", nil),
		cat(13, "Zeta", p(10)),
		cat(11, "Alpha", p(10)),
		cat(12, "Mid", p(10)),
	}
	f := BuildForest(list)
	require.Len(t, f[0].Children, 3)
	var names []string
	for _, c := range f[0].Children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, names)
}

func TestBuildForest_ChildBeforeParent(t *testing.T) {
	f := BuildForest([]core.Category{cat(2, "Child", p(1)), cat(1, "Parent", nil)})
	require.Len(t, f, 1)
	assert.Equal(t, "Parent", f[0].Name)
	assert.Equal(t, "Child", f[0].Children[0].Name)
}

func TestBuildForest_DuplicateFirstWins(t *testing.T) {
	f := BuildForest([]core.Category{cat(1, "First", nil), cat(1, "Second", nil)})
	require.Len(t, f, 1)
	assert.Equal(t, "First", f[0].Name)
}

func TestBuildForest_SelfAndCyclicParents(t *testing.T) {
	list := []core.Category{
		cat(1, "A", p(2)),
		cat(2, "B", p(1)),
		cat(3, "Self", p(3)),
		cat(4, "C", p(2)),
	}
	f := BuildForest(list)
	assert.Equal(t, 4, f.Count())

	seen := map[core.ID]int{}
	f.Walk(func(n *Node, _ int) bool {
		seen[n.ID]++
		return true
	})
	for _, c := range list {
		assert.Equal(t, 1, seen[c.ID], "id %d", c.ID)
	}
	// the earliest member of the cycle is detached
	assert.Equal(t, core.ID(1), f[0].ID)
}

func TestFlatten(t *testing.T) {
	opts := Flatten(BuildForest(sample()), DefaultIndent)
	require.Len(t, opts, 5)

	want := []struct {
		display string
		depth   int
	}{
		{"Food", 0},
		{"  Groceries", 1},
		{"    Organic", 2},
		{"Transport", 0},
		{"  Fuel", 1},
	}
	for i, w := range want {
		assert.Equal(t, w.display, opts[i].DisplayName)
		assert.Equal(t, w.depth, opts[i].Depth)
	}
	assert.Equal(t, "Organic", opts[2].Name)
	require.NotNil(t, opts[2].ParentID)
	assert.Equal(t, core.ID(2), *opts[2].ParentID)
	assert.Nil(t, opts[0].ParentID)
}

func TestFlatten_CustomIndent(t *testing.T) {
	opts := Flatten(BuildForest(sample()), "--")
	assert.Equal(t, "----Organic", opts[2].DisplayName)
}

func TestActiveOptions_SkipsInactiveSubtrees(t *testing.T) {
	list := sample()
	list[1].IsActive = false // Groceries
	opts := ActiveOptions(BuildForest(list), DefaultIndent)

	var ids []core.ID
	for _, o := range opts {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []core.ID{1, 4, 5}, ids)
}

func TestParentOptions(t *testing.T) {
	idx := NewIndex(sample())

	t.Run("editing a root excludes its subtree", func(t *testing.T) {
		opts := ParentOptions(idx, p(1), DefaultIndent)
		var ids []core.ID
		for _, o := range opts {
			ids = append(ids, o.ID)
		}
		assert.Equal(t, []core.ID{4, 5}, ids)
	})

	t.Run("editing a leaf excludes only itself", func(t *testing.T) {
		opts := ParentOptions(idx, p(3), DefaultIndent)
		assert.Len(t, opts, 4)
		for _, o := range opts {
			assert.NotEqual(t, core.ID(3), o.ID)
		}
	})

	t.Run("creating lists everything", func(t *testing.T) {
		assert.Len(t, ParentOptions(idx, nil, DefaultIndent), 5)
	})
}

func TestAncestorPathAndDepth(t *testing.T) {
	idx := NewIndex(sample())

	path := idx.AncestorPath(3)
	require.Len(t, path, 3)
	assert.Equal(t, []string{"Food", "Groceries", "Organic"}, []string{path[0].Name, path[1].Name, path[2].Name})
	assert.Equal(t, 2, idx.Depth(3))
	assert.Equal(t, 0, idx.Depth(1))

	assert.Empty(t, idx.AncestorPath(99))
	assert.Equal(t, -1, idx.Depth(99))
}

func TestIsDescendantOf(t *testing.T) {
	idx := NewIndex(sample())

	assert.True(t, idx.IsDescendantOf(3, 1))
	assert.True(t, idx.IsDescendantOf(3, 2))
	assert.True(t, idx.IsDescendantOf(3, 3))
	assert.True(t, idx.IsDescendantOf(99, 99))
	assert.False(t, idx.IsDescendantOf(1, 3))
	assert.False(t, idx.IsDescendantOf(5, 1))
	assert.False(t, idx.IsDescendantOf(99, 1))
}

func TestIsDescendantOf_TerminatesOnCycles(t *testing.T) {
	idx := NewIndex([]core.Category{cat(1, "A", p(2)), cat(2, "B", p(1)), cat(3, "C", nil)})
	assert.False(t, idx.IsDescendantOf(1, 3))
	assert.True(t, idx.IsDescendantOf(1, 2))
}

func TestChildrenHelpers(t *testing.T) {
	list := sample()
	list[4].IsActive = false // Fuel
	idx := NewIndex(list)

	assert.True(t, idx.HasActiveChildren(1))
	assert.False(t, idx.HasActiveChildren(4))
	assert.True(t, idx.HasChildren(4))
	assert.False(t, idx.HasChildren(5))
	assert.Equal(t, []core.ID{2, 3}, idx.Descendants(1))
	assert.Len(t, idx.Children(1), 1)
	assert.Len(t, idx.Roots(), 2)
	assert.Equal(t, 5, idx.Len())

	c, ok := idx.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, "Groceries", c.Name)
}

func TestValidateParent(t *testing.T) {
	idx := NewIndex(sample())

	assert.NoError(t, idx.ValidateParent(p(3), nil))
	assert.NoError(t, idx.ValidateParent(nil, p(1)))
	assert.NoError(t, idx.ValidateParent(p(5), p(1)))

	err := idx.ValidateParent(nil, p(99))
	assert.True(t, apierr.Is(err, apierr.Validation))

	err = idx.ValidateParent(p(2), p(2))
	assert.True(t, apierr.Is(err, apierr.Validation))

	err = idx.ValidateParent(p(1), p(3))
	assert.True(t, apierr.Is(err, apierr.Conflict))
	assert.Equal(t, apierr.MsgCircularReference, apierr.CategoryMessage(err))
}

func TestComputeStatistics(t *testing.T) {
	list := sample()
	list[2].IsActive = false
	s := ComputeStatistics(list)
	assert.Equal(t, Statistics{Total: 5, Active: 4, Inactive: 1, TopLevel: 2, Subcategories: 3}, s)
	assert.Equal(t, Statistics{}, ComputeStatistics(nil))
}

// randomForest returns n categories where every parent precedes its child.
func randomForest(r *rand.Rand, n int) []core.Category {
	list := make([]core.Category, 0, n)
	for i := 0; i < n; i++ {
		id := core.ID(i + 1)
		c := cat(id, "c"+id.String(), nil)
		if i > 0 && r.Intn(4) != 0 {
			c.ParentID = p(core.ID(r.Intn(i) + 1))
		}
		c.IsActive = r.Intn(5) != 0
		list = append(list, c)
	}
	r.Shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })
	return list
}

func TestProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		list := randomForest(r, 1+r.Intn(60))
		idx := NewIndex(list)
		forest := idx.Forest()
		opts := Flatten(forest, DefaultIndent)

		require.Equal(t, len(list), forest.Count())
		require.Len(t, opts, len(list))

		seen := map[core.ID]bool{}
		for _, o := range opts {
			require.False(t, seen[o.ID], "id %d listed twice", o.ID)
			seen[o.ID] = true
			require.Equal(t, idx.Depth(o.ID), o.Depth)
			require.True(t, strings.HasPrefix(o.DisplayName, strings.Repeat(DefaultIndent, o.Depth)))

			path := idx.AncestorPath(o.ID)
			require.Equal(t, o.ID, path[len(path)-1].ID)
			require.True(t, path[0].IsRoot() || !hasKnownParent(idx, path[0]))
			for _, anc := range path {
				require.True(t, idx.IsDescendantOf(o.ID, anc.ID))
			}
		}

		editing := list[r.Intn(len(list))].ID
		for _, o := range ParentOptions(idx, &editing, DefaultIndent) {
			require.NotEqual(t, editing, o.ID)
			require.False(t, idx.IsDescendantOf(o.ID, editing))
		}

		s := ComputeStatistics(list)
		require.Equal(t, s.Total, s.Active+s.Inactive)
		require.Equal(t, s.Total, s.TopLevel+s.Subcategories)
	}
}

func hasKnownParent(idx *Index, c core.Category) bool {
	if c.ParentID == nil {
		return false
	}
	_, ok := idx.Lookup(*c.ParentID)
	return ok
}
