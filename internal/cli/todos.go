package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/rxstore/internal/action"
	"github.com/roach88/rxstore/internal/config"
	"github.com/roach88/rxstore/internal/engine"
	"github.com/roach88/rxstore/internal/metrics"
	"github.com/roach88/rxstore/internal/todos"
	"github.com/roach88/rxstore/internal/todostore"
)

// settleTimeout bounds how long a command waits for effects to finish.
const settleTimeout = 10 * time.Second

// TodosOptions holds flags for the todos command.
type TodosOptions struct {
	*RootOptions
	Database string
	Config   string
	User     int
	Add      string
	Toggle   int
	Remove   int
	Metrics  bool
}

// TodosResult is the output of the todos command.
type TodosResult struct {
	User    int                `json:"user"`
	Todos   []todos.Todo       `json:"todos"`
	Summary todos.Summary      `json:"summary"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

func (r TodosResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "user %d: %d todo(s)\n", r.User, len(r.Todos))
	for _, t := range r.Todos {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(&b, "  [%s] %d %s\n", mark, t.ID, t.Title)
	}
	fmt.Fprintf(&b, "store: %d total, %d completed, %d user(s)",
		r.Summary.Total, r.Summary.Completed, r.Summary.Users)
	names := make([]string, 0, len(r.Metrics))
	for name := range r.Metrics {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&b, "\n%s %g", name, r.Metrics[name])
	}
	return b.String()
}

// NewTodosCommand creates the todos command.
func NewTodosCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TodosOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "todos",
		Short: "Load and edit todos in a SQLite database",
		Long: `Load todos from a SQLite database through the store's effects,
optionally add, toggle or remove one, and print one user's todos.

The database path and user come from flags, falling back to the config
file. Seed todos from the config file are written before loading.

Exit codes:
  0 - Success
  1 - An effect failed (the store recorded an error)
  2 - Command error (bad config, unreachable database, etc.)

Examples:
  rxstore todos --db ./todos.db --user 2
  rxstore todos --db ./todos.db --user 2 --add "Buy milk"
  rxstore todos --config ./rxstore.yaml --toggle 444
  rxstore todos --config ./rxstore.yaml --metrics --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTodos(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite database")
	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to a config file")
	cmd.Flags().IntVarP(&opts.User, "user", "u", 0, "user whose todos are printed")
	cmd.Flags().StringVar(&opts.Add, "add", "", "add a todo with this title for --user")
	cmd.Flags().IntVar(&opts.Toggle, "toggle", 0, "toggle the todo with this ID")
	cmd.Flags().IntVar(&opts.Remove, "remove", 0, "remove the todo with this ID")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print action counters")

	return cmd
}

func runTodos(cmd *cobra.Command, opts *TodosOptions) error {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "load config", err)
		}
		cfg = loaded
	}

	dbPath := cfg.Todos.DB
	if opts.Database != "" {
		dbPath = opts.Database
	}
	if dbPath == "" {
		return NewExitError(ExitCommandError, "no database: pass --db or set todos.db in the config file")
	}
	user := cfg.Todos.User
	if cmd.Flags().Changed("user") {
		user = opts.User
	}
	if opts.Add != "" && user <= 0 {
		return NewExitError(ExitCommandError, "--add needs a positive --user")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(cmd, opts.RootOptions)

	db, err := todostore.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer db.Close()

	if len(cfg.Todos.Seed) > 0 {
		if err := db.Seed(ctx, cfg.Todos.Seed); err != nil {
			return WrapExitError(ExitCommandError, "seed database", err)
		}
		f.VerboseLog("seeded %d todo(s)", len(cfg.Todos.Seed))
	}

	storeOpts := append(cfg.StoreOptions(), engine.WithLogger(todosLogger(cmd.ErrOrStderr(), opts.RootOptions, cfg)))
	reg := prometheus.NewRegistry()
	if opts.Metrics {
		collector, err := metrics.New(reg, cfg.Store.Name)
		if err != nil {
			return WrapExitError(ExitCommandError, "metrics", err)
		}
		storeOpts = append(storeOpts, engine.WithObserver(collector))
	}
	s := engine.New(storeOpts...)
	cells := todos.Wire(s, db)
	if err := s.Initialize(ctx); err != nil {
		return WrapExitError(ExitCommandError, "initialize store", err)
	}
	defer s.Dispose()

	forUser := engine.Select(s, todos.TodosForUser(user))
	defer forUser.Close()
	summary := todos.Summarize(s)
	defer summary.Close()

	steps := []action.Action{todos.LoadTodos{}}
	if opts.Add != "" {
		id, err := db.NextID(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "allocate todo id", err)
		}
		steps = append(steps, todos.AddTodo{Todo: todos.Todo{UserID: user, ID: id, Title: opts.Add}})
	}
	if opts.Toggle > 0 {
		steps = append(steps, todos.ToggleTodo{ID: opts.Toggle})
	}
	if opts.Remove > 0 {
		steps = append(steps, todos.RemoveTodo{ID: opts.Remove})
	}

	for _, a := range steps {
		if err := dispatchAndSettle(ctx, s, a); err != nil {
			return err
		}
		if msg := cells.Error.Current(); msg != "" {
			return NewExitError(ExitFailure, msg)
		}
		f.VerboseLog("%s settled", a.Type())
	}

	result := TodosResult{
		User:    user,
		Todos:   forUser.Current(),
		Summary: summary.Current(),
	}
	if opts.Metrics {
		counts, err := metrics.Counts(reg)
		if err != nil {
			return WrapExitError(ExitFailure, "metrics", err)
		}
		result.Metrics = counts
	}
	return f.Success(result)
}

// dispatchAndSettle dispatches a and waits for its effects to finish.
func dispatchAndSettle(ctx context.Context, s *engine.Store, a action.Action) error {
	if err := s.Dispatch(a); err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("dispatch %s", a.Type()), err)
	}

	settleCtx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	if err := s.Settle(settleCtx); err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("settle %s", a.Type()), err)
	}
	return nil
}

// todosLogger prefers --verbose over the config file's log section.
func todosLogger(w io.Writer, opts *RootOptions, cfg config.Config) *slog.Logger {
	if opts.Verbose {
		return opts.logger(w)
	}
	return slog.New(cfg.Log.Handler(w))
}
