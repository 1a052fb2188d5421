package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	types "github.com/yungbote/agentic-studio/internal/domain/jobs"
	"github.com/yungbote/agentic-studio/internal/jobs/orchestrator"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// progressLine is one line per snapshot while a job runs.
func progressLine(w io.Writer, s orchestrator.JobSnapshot) {
	for _, st := range s.Stages {
		if st.Status == orchestrator.StageRunning {
			fmt.Fprintf(w, "[%2d] %-13s %s: %s\n", s.Seq, s.State, st.Label, st.Detail)
			return
		}
	}
	if s.Terminal {
		fmt.Fprintf(w, "[%2d] %s\n", s.Seq, s.State)
	}
}

func printSnapshot(s orchestrator.JobSnapshot) error {
	if isJSONOutput() {
		return printJSON(s)
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Stage", "Status", "Detail")
	for _, st := range s.Stages {
		if err := table.Append(st.Label, string(st.Status), st.Detail); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Printf("\nJob %s: %s\n", s.JobID, s.State)
	if s.Error != "" {
		fmt.Printf("Error: %s\n", s.Error)
	}
	if u := s.Output.VideoURL; u != "" {
		if strings.HasPrefix(u, "data:") {
			u = fmt.Sprintf("[inline data URI, %d bytes]", len(u))
		}
		fmt.Printf("Video: %s\n", u)
	}
	targets := slices.Sorted(maps.Keys(s.Output.Uploads))
	for _, t := range targets {
		up := s.Output.Uploads[t]
		fmt.Printf("Upload %s: %s %s\n", t, up.VideoID, up.ShareURL)
	}
	return nil
}

func printRuns(runs []*types.JobRun) error {
	if isJSONOutput() {
		return printJSON(runs)
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Job ID", "State", "Topic", "Started", "Duration", "Error")
	for _, r := range runs {
		dur := "-"
		if r.FinishedAt != nil {
			dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		errMsg := r.Error
		if len(errMsg) > 40 {
			errMsg = errMsg[:37] + "..."
		}
		if err := table.Append(r.ID.String(), r.State, r.Topic, r.StartedAt.Format(time.RFC3339), dur, errMsg); err != nil {
			return err
		}
	}
	return table.Render()
}
