package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilnstack/kiln/pkg/stack"
	"github.com/kilnstack/kiln/pkg/stores"
	"github.com/kilnstack/kiln/pkg/telemetry"
	"github.com/kilnstack/kiln/pkg/watch"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage and evaluate watch rules",
		Long: `Manage watch rules: CloudWatch-style alarms evaluated over a
sliding window of buffered metric samples. Rules and samples are stored
in the SQLite database given by --db.`,
	}

	cmd.AddCommand(newWatchCreateCommand())
	cmd.AddCommand(newWatchIngestCommand())
	cmd.AddCommand(newWatchEvaluateCommand())
	cmd.AddCommand(newWatchSetStateCommand())
	cmd.AddCommand(newWatchListCommand())

	return cmd
}

// openService opens the SQLite store and builds a watch service around it.
// The returned close function must be called when done.
func openService(ctx context.Context, stacksPath string) (*watch.Service, func(), error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: dbPath})
	if err != nil {
		return nil, nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	loader := stack.MapLoader{}
	if stacksPath != "" {
		loader, err = loadStacksFile(stacksPath)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
	}

	logCfg := telemetry.DefaultConfig().Logging
	if verbose {
		logCfg.Level = "debug"
	}
	logCfg.Output = "stderr"
	logger, err := telemetry.NewLogger(logCfg)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	svc, err := watch.NewService(watch.ServiceConfig{
		Store:  store,
		Stacks: loader,
		Logger: logger,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	return svc, func() { store.Close() }, nil
}

// stacksFile is the on-disk shape of a --stacks definition file.
type stacksFile struct {
	Stacks map[string]struct {
		Action    string `yaml:"action"`
		Status    string `yaml:"status"`
		Resources map[string]struct {
			Action string                 `yaml:"action"`
			Status string                 `yaml:"status"`
			Attrs  map[string]interface{} `yaml:"attributes"`
		} `yaml:"resources"`
	} `yaml:"stacks"`
}

// loadStacksFile builds a stack loader from a YAML definition. Signals
// delivered to these file-defined resources are logged, not acted on.
func loadStacksFile(path string) (stack.MapLoader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stacks file: %w", err)
	}

	var file stacksFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse stacks file: %w", err)
	}

	loader := stack.MapLoader{}
	for id, def := range file.Stacks {
		s := &stack.StaticStack{
			StackAction: stack.Action(def.Action),
			StackStatus: stack.Status(def.Status),
			Resources:   map[string]*stack.StaticResource{},
		}
		for name, res := range def.Resources {
			resourceName := name
			s.Resources[name] = &stack.StaticResource{
				ResourceAction: stack.Action(res.Action),
				ResourceStatus: stack.Status(res.Status),
				Attributes:     res.Attrs,
				SignalFunc: func(ctx context.Context, details map[string]interface{}) error {
					log.Info().
						Str("resource", resourceName).
						Interface("details", details).
						Msg("Signal delivered")
					return nil
				},
			}
		}
		loader[id] = s
	}
	return loader, nil
}

func newWatchCreateCommand() *cobra.Command {
	var (
		stackID  string
		ruleFile string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a watch rule from a rule definition file",
		Example: `  # Create a rule from a YAML definition
  kiln watch create cpu-high --stack web --rule cpu-high.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(ruleFile)
			if err != nil {
				return fmt.Errorf("failed to read rule file: %w", err)
			}
			var rule watch.Rule
			if err := yaml.Unmarshal(data, &rule); err != nil {
				return fmt.Errorf("failed to parse rule file: %w", err)
			}

			svc, closeStore, err := openService(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer closeStore()

			wr, err := svc.NewRule(args[0], rule, stackID)
			if err != nil {
				return err
			}
			if err := wr.Store(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created watch rule %s (%s)\n", wr.Name, wr.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&stackID, "stack", "", "owning stack ID")
	cmd.Flags().StringVar(&ruleFile, "rule", "", "rule definition file (YAML)")
	_ = cmd.MarkFlagRequired("rule")

	return cmd
}

func newWatchIngestCommand() *cobra.Command {
	var values []string

	cmd := &cobra.Command{
		Use:   "ingest <name>",
		Short: "Ingest a metric sample for a watch rule",
		Long: `Ingest one metric sample. Samples that do not carry the rule's
configured metric, or that arrive while the rule is suspended, are
silently dropped.`,
		Example: `  # Ingest a CPU utilization sample
  kiln watch ingest cpu-high --value CPUUtilization=87.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeStore, err := openService(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer closeStore()

			wr, err := svc.LoadRule(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			data := map[string]watch.MetricDatum{}
			for _, pair := range values {
				name, raw, ok := strings.Cut(pair, "=")
				if !ok || name == "" {
					return fmt.Errorf("invalid value %q, expected metric=number", pair)
				}
				var v float64
				if _, err := fmt.Sscanf(raw, "%g", &v); err != nil {
					return fmt.Errorf("invalid value %q: %w", pair, err)
				}
				data[name] = watch.MetricDatum{Value: v}
			}

			return wr.CreateWatchData(cmd.Context(), data)
		},
	}

	cmd.Flags().StringArrayVar(&values, "value", nil, "metric value as metric=number (repeatable)")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func newWatchEvaluateCommand() *cobra.Command {
	var (
		stacksPath string
		interval   time.Duration
		follow     bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate all stored watch rules",
		Long: `Evaluate every stored watch rule once, or continuously with
--follow. Actions resolved by a state transition are invoked against the
stacks defined in the --stacks file; without one, transitions are still
recorded but no actions can be dispatched.`,
		Example: `  # One evaluation pass
  kiln watch evaluate --stacks stacks.yaml

  # Evaluate continuously every 60s
  kiln watch evaluate --stacks stacks.yaml --follow --interval 60s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeStore, err := openService(cmd.Context(), stacksPath)
			if err != nil {
				return err
			}
			defer closeStore()

			evaluator, err := watch.NewEvaluator(watch.EvaluatorConfig{
				Service:  svc,
				Interval: interval,
			})
			if err != nil {
				return err
			}

			if follow {
				err := evaluator.Run(cmd.Context())
				if err == context.Canceled {
					return nil
				}
				return err
			}
			return evaluator.RunOnce(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&stacksPath, "stacks", "", "stack definitions file (YAML)")
	cmd.Flags().DurationVar(&interval, "interval", 60*time.Second, "evaluation interval with --follow")
	cmd.Flags().BoolVar(&follow, "follow", false, "keep evaluating until interrupted")

	return cmd
}

func newWatchSetStateCommand() *cobra.Command {
	var (
		stacksPath string
		dispatch   bool
	)

	cmd := &cobra.Command{
		Use:   "set-state <name> <state>",
		Short: "Set a watch rule's state",
		Long: `Set a watch rule's state to one of ALARM, NORMAL, NODATA or
SUSPENDED. With --dispatch the actions registered for the new state are
invoked first, without persisting the override; otherwise the state is
stored directly.`,
		Example: `  # Suspend a rule
  kiln watch set-state cpu-high SUSPENDED

  # Force the alarm actions to run
  kiln watch set-state cpu-high ALARM --dispatch --stacks stacks.yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeStore, err := openService(cmd.Context(), stacksPath)
			if err != nil {
				return err
			}
			defer closeStore()

			wr, err := svc.LoadRule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			state := watch.State(args[1])

			if dispatch {
				actions, err := wr.SetWatchState(cmd.Context(), state)
				if err != nil {
					return err
				}
				for _, action := range actions {
					if err := action(cmd.Context()); err != nil {
						log.Error().Err(err).Msg("Action failed")
					}
				}
				return nil
			}

			return wr.StateSet(cmd.Context(), state)
		},
	}

	cmd.Flags().StringVar(&stacksPath, "stacks", "", "stack definitions file (YAML)")
	cmd.Flags().BoolVar(&dispatch, "dispatch", false, "invoke the new state's actions instead of persisting")

	return cmd
}

func newWatchListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored watch rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeStore, err := openService(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer closeStore()

			rules, err := svc.ListRules(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTACK\tSTATE\tSTATISTIC\tPERIOD\tLAST EVALUATED")
			for _, r := range rules {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.Name, r.StackID, r.State, r.Rule.Statistic,
					r.Timeperiod(), r.LastEvaluated.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	return cmd
}
