package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"finspect/internal/actor"
	"finspect/internal/cache"
	"finspect/internal/categories/rest"
	"finspect/internal/cli"
	"finspect/internal/config"
	"finspect/internal/core"
	"finspect/internal/hierarchy"
	"finspect/internal/log"
	"finspect/internal/services"

	"github.com/spf13/cobra"
)

// builder opens the category service and names the actor used for writes.
type builder func() (*services.CategoryService, actor.Actor, error)

func buildFromEnv() (*services.CategoryService, actor.Actor, error) {
	cfg, err := cli.LoadConfig((*config.Config).Validate)
	if err != nil {
		return nil, actor.Actor{}, err
	}
	level, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentCLI,
		Output:    os.Stderr,
	})

	client, err := rest.New(rest.Options{
		BaseURL:         cfg.APIBaseURL,
		PathPrefix:      cfg.APIPathPrefix,
		AdminPathPrefix: cfg.APIAdminPathPrefix,
		Timeout:         cfg.APITimeout,
		Logger:          logger.WithComponent(log.ComponentREST).Slog(),
	}, cache.NewLRUCache[[]core.Category](cfg.CacheMaxEntries, cfg.CacheTTL))
	if err != nil {
		return nil, actor.Actor{}, err
	}
	svc := services.NewCategoryService(client,
		services.WithIndent(cfg.OptionIndent),
		// a mutation makes up to three API calls
		services.WithCallTimeout(3*cfg.APITimeout),
		services.WithLogger(logger.Slog()),
	)
	return svc, actor.Actor{ID: cfg.ActorID, Token: cfg.ActorToken}, nil
}

type app struct {
	build builder
	svc   *services.CategoryService
	who   actor.Actor
}

func (a *app) ctx(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return actor.NewContext(ctx, a.who)
}

func newRootCmd(build builder) *cobra.Command {
	a := &app{build: build}

	root := &cobra.Command{
		Use:           "finspectctl",
		Short:         "Inspect and edit the expense category hierarchy",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			svc, who, err := a.build()
			if err != nil {
				return err
			}
			a.svc, a.who = svc, who
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.svc == nil {
				return nil
			}
			return a.svc.Close()
		},
	}

	root.AddCommand(
		a.treeCmd(),
		a.optionsCmd(),
		a.statsCmd(),
		a.pathCmd(),
		a.searchCmd(),
		a.createCmd(),
		a.updateCmd(),
		a.deleteCmd(),
		a.activateCmd(),
	)
	return root
}

func (a *app) treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the category forest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.svc.Load(a.ctx(cmd))
			if err != nil {
				return err
			}
			printForest(cmd.OutOrStdout(), snap.Forest)
			return nil
		},
	}
}

func (a *app) optionsCmd() *cobra.Command {
	var (
		editing    string
		activeOnly bool
	)
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Print the indented selection list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				opts []hierarchy.Option
				err  error
			)
			if activeOnly {
				opts, err = a.svc.ActiveOptions(a.ctx(cmd))
			} else {
				var ed *core.ID
				if editing != "" {
					id, perr := core.ParseID(editing)
					if perr != nil {
						return perr
					}
					ed = &id
				}
				opts, err = a.svc.ParentOptions(a.ctx(cmd), ed)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, o := range opts {
				fmt.Fprintf(out, "%6d  %s\n", o.ID, o.DisplayName)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&editing, "editing", "", "id of the category being edited; it and its descendants are excluded")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "list only categories reachable through active ancestors")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print category counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.svc.Load(a.ctx(cmd))
			if err != nil {
				return err
			}
			s := snap.Stats
			fmt.Fprintf(cmd.OutOrStdout(), "total: %d\nactive: %d\ninactive: %d\ntop level: %d\nsubcategories: %d\n",
				s.Total, s.Active, s.Inactive, s.TopLevel, s.Subcategories)
			return nil
		},
	}
}

func (a *app) pathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <id>",
		Short: "Print the ancestor path of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseID(args[0])
			if err != nil {
				return err
			}
			path, depth, err := a.svc.Path(a.ctx(cmd), id)
			if err != nil {
				return err
			}
			names := make([]string, len(path))
			for i, c := range path {
				names[i] = c.Name
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (depth %d)\n", strings.Join(names, " > "), depth)
			return nil
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	var parentOnly bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search categories by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.svc.Search(a.ctx(cmd), args[0], parentOnly)
			if err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().BoolVar(&parentOnly, "parent-only", false, "match top level categories only")
	return cmd
}

// inputFlags binds the editable category fields.
type inputFlags struct {
	name, description, color string
	parent                   string
	sort                     int
}

func (f *inputFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "category name")
	cmd.Flags().StringVar(&f.description, "description", "", "category description")
	cmd.Flags().StringVar(&f.color, "color", "", "hex color such as #FF5733")
	cmd.Flags().StringVar(&f.parent, "parent", "", "parent category id; empty for a top level category")
	cmd.Flags().IntVar(&f.sort, "sort", 0, "sort order")
}

// apply overlays the flags that were set on base.
func (f *inputFlags) apply(cmd *cobra.Command, base core.CategoryInput) (core.CategoryInput, error) {
	flags := cmd.Flags()
	if flags.Changed("name") {
		base.Name = f.name
	}
	if flags.Changed("description") {
		base.Description = f.description
	}
	if flags.Changed("color") {
		base.ColorCode = f.color
	}
	if flags.Changed("parent") {
		base.ParentID = nil
		if f.parent != "" {
			id, err := core.ParseID(f.parent)
			if err != nil {
				return base, err
			}
			base.ParentID = &id
		}
	}
	if flags.Changed("sort") {
		n := f.sort
		base.SortOrder = &n
	}
	return base, nil
}

func (a *app) createCmd() *cobra.Command {
	var f inputFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := f.apply(cmd, core.CategoryInput{})
			if err != nil {
				return err
			}
			c, err := a.svc.CreateCategory(a.ctx(cmd), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created category %d %s\n", c.ID, c.Name)
			return nil
		},
	}
	f.bind(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("color")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var f inputFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a category; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseID(args[0])
			if err != nil {
				return err
			}
			current, err := a.svc.Category(a.ctx(cmd), id)
			if err != nil {
				return err
			}
			in, err := f.apply(cmd, current.Input())
			if err != nil {
				return err
			}
			c, err := a.svc.UpdateCategory(a.ctx(cmd), id, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated category %d %s\n", c.ID, c.Name)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Deactivate a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseID(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.DeleteCategory(a.ctx(cmd), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %d\n", id)
			return nil
		},
	}
}

func (a *app) activateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>",
		Short: "Reactivate a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.svc.ActivateCategory(a.ctx(cmd), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Activated category %d %s\n", c.ID, c.Name)
			return nil
		},
	}
}

func printForest(w io.Writer, forest hierarchy.Forest) {
	forest.Walk(func(n *hierarchy.Node, depth int) bool {
		fmt.Fprintf(w, "%s%s (%d)%s\n", strings.Repeat("  ", depth), n.Name, n.ID, inactiveMark(n.Category))
		return true
	})
}

func printList(w io.Writer, list []core.Category) {
	for _, c := range list {
		fmt.Fprintf(w, "%6d  %s%s\n", c.ID, c.Name, inactiveMark(c))
	}
}

func inactiveMark(c core.Category) string {
	if c.IsActive {
		return ""
	}
	return " [inactive]"
}
