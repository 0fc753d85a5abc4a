package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rohmanhakim/opendata-harvester/internal/build"
	"github.com/rohmanhakim/opendata-harvester/internal/metadata"
	"github.com/rohmanhakim/opendata-harvester/internal/recipe"
	"github.com/rohmanhakim/opendata-harvester/internal/runner"
	"github.com/rohmanhakim/opendata-harvester/pkg/timeutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the available recipes.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Recipe", "Version", "Description"})
		for _, rec := range recipe.DefaultRegistry().All() {
			t.AppendRow(table.Row{rec.Name(), rec.Version(), rec.Description()})
		}
		t.Render()
	},
}

var runCmd = &cobra.Command{
	Use:   "run [recipe...]",
	Short: "Runs the named recipes one after another, or all of them when none is named.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.Verbose(), uuid.NewString())
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		recorder := metadata.NewRecorder(logger)
		env := recipe.NewEnv(cfg, &recorder, timeutil.SystemClock{})
		harvest := runner.NewRunner(recipe.DefaultRegistry(), env, &recorder)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		reports, runErr := harvest.Run(ctx, args)
		if len(reports) > 0 {
			renderReports(cmd.OutOrStdout(), reports)
		}
		return runErr
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), build.FullVersion())
	},
}

// newLogger tags every entry with runID so one harvest can be picked out of
// a shared log.
func newLogger(verbose bool, runID string) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.InitialFields = map[string]any{"run_id": runID}
	if verbose {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zapConfig.Build()
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func renderReports(out io.Writer, reports []runner.RunReport) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Recipe", "Version", "Rows", "Buckets", "Unknowns", "Artifacts", "Duration", "Status"})
	for _, report := range reports {
		status := "ok"
		if report.Failed() {
			status = report.Err.Error()
		}
		t.AppendRow(table.Row{
			report.Recipe,
			report.Version,
			report.Outcome.Rows(),
			report.Outcome.Buckets(),
			report.Outcome.Unknowns(),
			len(report.Outcome.Artifacts()),
			report.Duration.Round(time.Millisecond).String(),
			status,
		})
	}
	t.Render()
}

// ExecuteForTest runs the root command with args, writing command output to out.
func ExecuteForTest(out io.Writer, args ...string) error {
	rootCmd.SetOut(out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	return rootCmd.Execute()
}
