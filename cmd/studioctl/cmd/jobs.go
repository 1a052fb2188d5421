package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/agentic-studio/internal/jobs/orchestrator"
	"github.com/yungbote/agentic-studio/internal/platform/shutdown"
)

var (
	submitWatch bool
	listLimit   int
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a brief and return its job id",
	Long: `Submit a brief to the server and print the job id.

Examples:
  studioctl submit -f brief.yaml
  studioctl submit -f brief.yaml --watch`,
	RunE: runSubmit,
}

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show the latest snapshot of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var watchCmd = &cobra.Command{
	Use:   "watch [job-id]",
	Short: "Follow a job until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [job-id]",
	Short: "Cancel a running job",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived jobs, newest first",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(listCmd)

	submitCmd.Flags().StringVarP(&briefFile, "file", "f", "", "brief file (YAML or JSON, - for stdin)")
	submitCmd.Flags().BoolVar(&submitWatch, "watch", false, "follow the job after submitting")
	_ = submitCmd.MarkFlagRequired("file")

	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum number of jobs to show")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	spec, err := loadBrief(briefFile)
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, stop := shutdown.NotifyContext(cmd.Context())
	defer stop()

	id, err := c.StartJob(ctx, spec)
	if err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	if !submitWatch {
		if isJSONOutput() {
			return printJSON(map[string]string{"jobId": id})
		}
		fmt.Println(id)
		return nil
	}
	return watchJob(cmd, id)
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	snap, err := c.GetJob(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printSnapshot(snap)
}

func runWatch(cmd *cobra.Command, args []string) error {
	return watchJob(cmd, args[0])
}

func watchJob(cmd *cobra.Command, id string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, stop := shutdown.NotifyContext(cmd.Context())
	defer stop()

	final, err := c.Watch(ctx, id, func(s orchestrator.JobSnapshot) { progressLine(os.Stderr, s) })
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

func runCancel(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.CancelJob(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Cancellation requested for job %s\n", args[0])
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	runs, err := c.ListJobs(cmd.Context(), listLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 && !isJSONOutput() {
		fmt.Println("No archived jobs")
		return nil
	}
	return printRuns(runs)
}
