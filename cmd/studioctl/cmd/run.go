package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/agentic-studio/internal/app"
	"github.com/yungbote/agentic-studio/internal/domain"
	"github.com/yungbote/agentic-studio/internal/jobs/orchestrator"
	"github.com/yungbote/agentic-studio/internal/platform/ctxutil"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
	"github.com/yungbote/agentic-studio/internal/platform/shutdown"
)

var (
	briefFile     string
	runLocal      bool
	appConfigFile string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a job and follow it to completion",
	Long: `Run a job from a brief file and print each stage as it progresses.

By default the brief is submitted to the server and followed over its event
stream. With --local the pipeline runs inside this process using the same
configuration the server reads.

Examples:
  studioctl run -f brief.yaml
  studioctl run -f brief.yaml --local --app-config studio.yaml`,
	RunE: runRun,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a brief without running it",
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := loadBrief(briefFile)
		if err != nil {
			return err
		}
		if isJSONOutput() {
			return printJSON(spec)
		}
		fmt.Printf("Brief OK: %q (%ds, targets %v)\n", spec.Topic, spec.DurationSeconds, spec.UploadTargets)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)

	runCmd.Flags().StringVarP(&briefFile, "file", "f", "", "brief file (YAML or JSON, - for stdin)")
	runCmd.Flags().BoolVar(&runLocal, "local", false, "run the pipeline in-process instead of on the server")
	runCmd.Flags().StringVar(&appConfigFile, "app-config", "", "server config file used with --local (default $STUDIO_CONFIG)")
	_ = runCmd.MarkFlagRequired("file")

	validateCmd.Flags().StringVarP(&briefFile, "file", "f", "", "brief file (YAML or JSON, - for stdin)")
	_ = validateCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, args []string) error {
	spec, err := loadBrief(briefFile)
	if err != nil {
		return err
	}

	ctx, stop := shutdown.NotifyContext(cmd.Context())
	defer stop()

	var final orchestrator.JobSnapshot
	if runLocal {
		final, err = runInProcess(ctx, spec)
	} else {
		final, err = runRemote(ctx, spec)
	}
	if err != nil {
		return err
	}
	if err := printSnapshot(final); err != nil {
		return err
	}
	if final.State == orchestrator.StateFailed {
		return fmt.Errorf("job %s failed", final.JobID)
	}
	return nil
}

func runRemote(ctx context.Context, spec domain.JobSpecification) (orchestrator.JobSnapshot, error) {
	c, err := newClient()
	if err != nil {
		return orchestrator.JobSnapshot{}, err
	}
	id, err := c.StartJob(ctx, spec)
	if err != nil {
		return orchestrator.JobSnapshot{}, fmt.Errorf("start job: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Job %s started on %s\n", id, c.BaseURL())
	return c.Watch(ctx, id, func(s orchestrator.JobSnapshot) { progressLine(os.Stderr, s) })
}

func runInProcess(ctx context.Context, spec domain.JobSpecification) (orchestrator.JobSnapshot, error) {
	cfg, err := app.LoadConfig(appConfigFile)
	if err != nil {
		return orchestrator.JobSnapshot{}, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return orchestrator.JobSnapshot{}, fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	eng, err := app.BuildEngine(ctx, log, cfg, nil)
	if err != nil {
		return orchestrator.JobSnapshot{}, err
	}
	defer eng.Close()

	id := uuid.NewString()
	fmt.Fprintf(os.Stderr, "Job %s running locally\n", id)

	var last orchestrator.JobSnapshot
	for snap := range eng.Run(ctxutil.WithJobID(ctx, id), spec) {
		progressLine(os.Stderr, snap)
		last = snap
	}
	if !last.Terminal {
		return last, fmt.Errorf("job %s ended without a terminal snapshot", id)
	}
	return last, nil
}
