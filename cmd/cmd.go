package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitlanes/internal/buildinfo"
	"github.com/thiagokokada/gitlanes/internal/config"
	"github.com/thiagokokada/gitlanes/internal/git"
	"github.com/thiagokokada/gitlanes/internal/graph"
	"github.com/thiagokokada/gitlanes/internal/gui"
	"github.com/thiagokokada/gitlanes/internal/logging"
	"github.com/thiagokokada/gitlanes/internal/refresh"
	"github.com/thiagokokada/gitlanes/internal/textgraph"
	"github.com/thiagokokada/gitlanes/internal/watch"
)

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

type app struct {
	stdout, stderr io.Writer

	configPath string
	theme      string
	verbose    bool
	noWatch    bool
	remotes    bool

	cfg config.Config
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "gitlanes [repo]",
		Short: "Browse the commit graph of a git repository",
		Long: `gitlanes opens a local git repository and draws its commit graph
in lanes, with background fetch and pull.

Without a subcommand the graphical browser is started.`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
		RunE: func(cmd *cobra.Command, args []string) error {
			return gui.Run(gui.RunConfig{
				RepoPath:        repoArg(args),
				ThemePreference: gui.ThemePreferenceFromString(a.cfg.Theme),
				AutoReload:      a.cfg.AutoReload,
				IncludeRemotes:  a.cfg.Graph.IncludeRemoteBranches,
				PaddingRows:     a.cfg.Graph.PaddingRows,
				RowPitch:        a.cfg.Graph.RowPitch,
				LaneSpacing:     a.cfg.Graph.LaneSpacing,
				Watch: watch.Options{
					Debounce: a.cfg.Watch.Debounce(),
					Ignore:   a.cfg.Watch.Ignore,
				},
			})
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/gitlanes/config.yaml)")
	flags.StringVar(&a.theme, "theme", "", "color mode: auto, light, or dark")
	flags.BoolVar(&a.verbose, "verbose", false, "enable verbose logging")
	flags.BoolVar(&a.noWatch, "no-watch", false, "disable automatic reload when the repository changes")
	flags.BoolVar(&a.remotes, "remotes", true, "include remote-tracking branches in the graph")

	root.AddCommand(
		a.newLogCmd(),
		a.newRefsCmd(),
		a.newFetchCmd(),
		a.newPullCmd(),
		a.newVersionCmd(),
	)
	return root
}

// load reads the config file and lets explicitly set flags override it.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("theme") {
		cfg.Theme = a.theme
	}
	if flags.Changed("verbose") {
		cfg.Verbose = a.verbose
	}
	if flags.Changed("no-watch") {
		cfg.AutoReload = !a.noWatch
	}
	if flags.Changed("remotes") {
		cfg.Graph.IncludeRemoteBranches = a.remotes
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	logging.Setup(a.stderr, cfg.Verbose)
	return nil
}

func repoArg(args []string) string {
	if len(args) > 0 {
		return args[len(args)-1]
	}
	return "."
}

// coordinator runs operations synchronously; failures are returned to the
// caller instead of being reported.
func (a *app) coordinator(svc *git.Service) *refresh.Coordinator {
	return refresh.New(svc, nil, refresh.Options{
		Walk: graph.WalkOptions{IncludeRemotes: a.cfg.Graph.IncludeRemoteBranches},
	})
}

func (a *app) newLogCmd() *cobra.Command {
	var rows int
	var check bool
	cmd := &cobra.Command{
		Use:   "log [repo]",
		Short: "Print the commit graph to the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := git.Open(repoArg(args))
			if err != nil {
				return err
			}
			res := a.coordinator(svc).Refresh(cmd.Context())
			if err := errors.Join(res.Errs...); err != nil {
				return err
			}
			if check {
				if err := graph.Verify(res.Layout); err != nil {
					return err
				}
			}
			end := res.Layout.Len()
			if rows > 0 {
				end = min(rows, end)
			}
			frame := graph.Materialize(res.Layout, 0, end)
			_, err = io.WriteString(a.stdout, textgraph.New(a.stdout).Render(frame))
			return err
		},
	}
	cmd.Flags().IntVarP(&rows, "rows", "n", 50, "number of rows to print, 0 for all")
	cmd.Flags().BoolVar(&check, "check", false, "verify the layout before printing")
	return cmd
}

func (a *app) newRefsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refs [repo]",
		Short: "List branches and tags",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := git.Open(repoArg(args))
			if err != nil {
				return err
			}
			if err := svc.Lock(cmd.Context()); err != nil {
				return err
			}
			groups, err := svc.Refs(cmd.Context())
			svc.Unlock()
			if err != nil {
				return err
			}
			return renderRefs(a.stdout, groups)
		},
	}
}

func renderRefs(w io.Writer, groups git.RefGroups) error {
	table := tablewriter.NewWriter(w)
	table.Header("", "Kind", "Name", "Commit")
	for _, group := range []struct {
		kind string
		refs []git.Ref
	}{
		{"branch", groups.Local},
		{"remote", groups.Remote},
		{"tag", groups.Tags},
	} {
		for _, ref := range group.refs {
			head := ""
			if ref.IsHead {
				head = "*"
			}
			if err := table.Append(head, group.kind, ref.Short, ref.Target.Short()); err != nil {
				return err
			}
		}
	}
	return table.Render()
}

func (a *app) newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [repo]",
		Short: "Fetch every remote and print the refreshed summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := git.Open(repoArg(args))
			if err != nil {
				return err
			}
			res := a.coordinator(svc).Fetch(cmd.Context())
			if err := errors.Join(res.Errs...); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "fetched; %d commits in graph\n", res.Layout.Len())
			return nil
		},
	}
}

func (a *app) newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull [repo]",
		Short: "Fast-forward or rebase the current branch onto its upstream",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := git.Open(repoArg(args))
			if err != nil {
				return err
			}
			res := a.coordinator(svc).Pull(cmd.Context())
			if err := errors.Join(res.Errs...); err != nil {
				return err
			}
			pr := res.Pull
			fmt.Fprintf(a.stdout, "%s: %s", pr.Branch, pr.Outcome)
			if pr.Outcome == git.PullRebased {
				fmt.Fprintf(a.stdout, " (%d commits replayed)", pr.Replayed)
			}
			fmt.Fprintf(a.stdout, " onto %s\n", pr.Upstream)
			return nil
		},
	}
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(a.stdout, "gitlanes %s\n", buildinfo.String())
			return err
		},
	}
}
