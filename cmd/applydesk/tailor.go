package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/observability"
	"github.com/jonathan/applydesk/internal/polling"
	"github.com/jonathan/applydesk/internal/types"
	"github.com/spf13/cobra"
)

var (
	tailorJobID           string
	tailorResumeID        string
	tailorMode            string
	tailorDescriptionFile string
	tailorMaxPolls        int
)

var tailorCmd = &cobra.Command{
	Use:   "tailor",
	Short: "Tailor a resume to a job and wait for the result",
	Long: `Trigger a tailoring run for a job on a running server, then poll its status with a
growing backoff until the run completes or fails. The final record is printed as JSON.`,
	RunE: runTailor,
}

func init() {
	tailorCmd.Flags().StringVarP(&tailorJobID, "job", "j", "", "Job id (required)")
	tailorCmd.Flags().StringVarP(&tailorResumeID, "resume", "r", "", "Resume id; defaults to the job's resume")
	tailorCmd.Flags().StringVarP(&tailorMode, "mode", "m", "", "queued or direct; defaults to the server's mode")
	tailorCmd.Flags().StringVarP(&tailorDescriptionFile, "description-file", "d", "", "File with the job description to use")
	tailorCmd.Flags().IntVar(&tailorMaxPolls, "max-polls", 0, "Give up after this many polls (0 polls until done)")
	_ = tailorCmd.MarkFlagRequired("job")
	addRemoteFlags(tailorCmd)
	rootCmd.AddCommand(tailorCmd)
}

func runTailor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadRemoteConfig()
	if err != nil {
		return err
	}

	jobID, err := uuid.Parse(tailorJobID)
	if err != nil {
		return fmt.Errorf("--job must be a UUID: %w", err)
	}
	req := &types.TriggerTailoringRequest{Mode: types.TailorMode(tailorMode)}
	if tailorResumeID != "" {
		resumeID, err := uuid.Parse(tailorResumeID)
		if err != nil {
			return fmt.Errorf("--resume must be a UUID: %w", err)
		}
		req.ResumeID = &resumeID
	}
	if tailorDescriptionFile != "" {
		data, err := os.ReadFile(tailorDescriptionFile)
		if err != nil {
			return fmt.Errorf("failed to read description file: %w", err)
		}
		req.JobDescription = string(data)
	}

	c := cfg.client()
	tr, err := c.TriggerTailoring(ctx, jobID, req)
	if err != nil {
		return err
	}
	if !tr.Status.Terminal() {
		fmt.Fprintf(cmd.ErrOrStderr(), "tailoring %s, waiting for the result...\n", tr.Status)
		tr, err = c.WaitForTailoring(ctx, jobID, polling.Poller{
			Backoff:     cfg.Polling.Backoff(),
			MaxAttempts: tailorMaxPolls,
			OnPoll: func(attempt int, delay time.Duration) {
				fmt.Fprintf(cmd.ErrOrStderr(), "poll %d after %s\n", attempt+1, delay)
			},
		})
		if err != nil {
			return err
		}
	}
	if err := printResult(cmd.OutOrStdout(), tr, (*observability.Printer).PrintTailoredResume); err != nil {
		return err
	}
	if tr.Status == types.TailorStatusFailed {
		msg := "unknown error"
		if tr.ErrorMessage != nil {
			msg = *tr.ErrorMessage
		}
		return fmt.Errorf("tailoring failed: %s", msg)
	}
	return nil
}
