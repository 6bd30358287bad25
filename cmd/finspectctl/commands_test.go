package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"finspect/internal/actor"
	"finspect/internal/apierr"
	"finspect/internal/cache"
	"finspect/internal/categories/rest"
	"finspect/internal/core"
	"finspect/internal/services"
	"finspect/internal/stubapi"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// referenceBuilder serves a seeded reference API and builds the service
// against it.
func referenceBuilder(t *testing.T, who actor.Actor) builder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := stubapi.NewMemoryStore()
	_, err := stubapi.Seed(context.Background(), store, []stubapi.SeedCategory{
		{Name: "Food", ColorCode: "#FF5733"},
		{Name: "Groceries", Parent: "Food", ColorCode: "#00AA00"},
		{Name: "Transport", ColorCode: "#0000FF"},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(stubapi.NewRouter(stubapi.NewService(store, nil), stubapi.RouterOptions{
		PublicPrefix: "/v1/public",
		AdminPrefix:  "/v1/admin",
		AdminToken:   "tok",
	}))
	t.Cleanup(srv.Close)

	return func() (*services.CategoryService, actor.Actor, error) {
		client, err := rest.New(rest.Options{
			BaseURL:         srv.URL,
			PathPrefix:      "/v1/public",
			AdminPathPrefix: "/v1/admin",
			Timeout:         2 * time.Second,
		}, cache.NewLRUCache[[]core.Category](16, time.Minute))
		if err != nil {
			return nil, actor.Actor{}, err
		}
		return services.NewCategoryService(client), who, nil
	}
}

func run(t *testing.T, build builder, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(build)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestReadCommands(t *testing.T) {
	build := referenceBuilder(t, actor.Actor{})

	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"tree"}, []string{"Food (1)\n", "  Groceries (2)\n", "Transport (3)\n"}},
		{[]string{"options"}, []string{"Food", "  Groceries", "Transport"}},
		{[]string{"options", "--editing", "1"}, []string{"Transport"}},
		{[]string{"stats"}, []string{"total: 3", "top level: 2", "subcategories: 1"}},
		{[]string{"path", "2"}, []string{"Food > Groceries (depth 1)"}},
		{[]string{"search", "groc"}, []string{"Groceries"}},
	}
	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			out, err := run(t, build, tt.args...)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestOptionsEditingExcludesSubtree(t *testing.T) {
	out, err := run(t, referenceBuilder(t, actor.Actor{}), "options", "--editing", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "Food")
	assert.NotContains(t, out, "Groceries")
}

func TestMutationsRequireActor(t *testing.T) {
	_, err := run(t, referenceBuilder(t, actor.Actor{}), "create", "--name", "Coffee", "--color", "#123456")
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.Authentication), "got %v", err)
}

func TestMutationCommands(t *testing.T) {
	build := referenceBuilder(t, actor.Actor{ID: "u-1", Token: "tok"})

	out, err := run(t, build, "create", "--name", "Fuel", "--color", "#333333", "--parent", "3")
	require.NoError(t, err)
	assert.Equal(t, "Created category 4 Fuel\n", out)

	out, err = run(t, build, "update", "4", "--name", "Petrol")
	require.NoError(t, err)
	assert.Equal(t, "Updated category 4 Petrol\n", out)

	out, err = run(t, build, "path", "4")
	require.NoError(t, err)
	assert.Equal(t, "Transport > Petrol (depth 1)\n", out)

	out, err = run(t, build, "delete", "4")
	require.NoError(t, err)
	assert.Equal(t, "Deleted category 4\n", out)

	out, err = run(t, build, "tree")
	require.NoError(t, err)
	assert.Contains(t, out, "Petrol (4) [inactive]")

	out, err = run(t, build, "activate", "4")
	require.NoError(t, err)
	assert.Equal(t, "Activated category 4 Petrol\n", out)
}

func TestUpdateRefusesCycle(t *testing.T) {
	_, err := run(t, referenceBuilder(t, actor.Actor{ID: "u-1", Token: "tok"}), "update", "1", "--parent", "2")
	require.Error(t, err)
	assert.Equal(t, apierr.MsgCircularReference, describe(err))
}

func TestUsageErrors(t *testing.T) {
	build := referenceBuilder(t, actor.Actor{})

	_, err := run(t, build, "path", "abc")
	require.Error(t, err)
	assert.Contains(t, describe(err), "invalid category id")

	_, err = run(t, build, "create", "--name", "Coffee")
	require.Error(t, err)
	assert.Contains(t, describe(err), "color")
}
