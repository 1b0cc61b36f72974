package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/completion"
	"github.com/zulandar/switchboard/internal/models"
)

func newSyncCmd() *cobra.Command {
	var (
		configPath       string
		sessionIDs       []string
		source           string
		archiveStatus    string
		completionStatus string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Recompute and correct stored completion statuses",
		Long: `Recomputes the completion status of every matching session from its
messages and writes back the ones that changed. Sessions that fail to save
are reported and the rest are still corrected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := completion.Filter{SessionIDs: sessionIDs}
			var err error
			if source != "" {
				if f.Source, err = models.ParseSource(source); err != nil {
					return err
				}
			}
			if archiveStatus != "" {
				if f.ArchiveStatus, err = models.ParseArchiveStatus(archiveStatus); err != nil {
					return err
				}
			}
			if completionStatus != "" {
				if f.CompletionStatus, err = models.ParseCompletionStatus(completionStatus); err != nil {
					return err
				}
			}
			return runSync(cmd, configPath, f)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringSliceVar(&sessionIDs, "session", nil, "limit to these session IDs (repeatable)")
	cmd.Flags().StringVar(&source, "source", "", "limit to a source (messenger, web_chat, embed_chat)")
	cmd.Flags().StringVar(&archiveStatus, "archive-status", "", "limit to active or archived sessions")
	cmd.Flags().StringVar(&completionStatus, "completion-status", "", "limit to a stored completion status")
	return cmd
}

func runSync(cmd *cobra.Command, configPath string, f completion.Filter) error {
	a, err := loadApp(configPath)
	if err != nil {
		return err
	}
	res, err := a.rec.Sync(context.Background(), completion.TriggerManual, f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanned %d sessions, corrected %d\n", res.Scanned, res.CorrectedCount)
	if len(res.FailedIDs) > 0 {
		fmt.Fprintf(out, "Failed to save: %s\n", strings.Join(res.FailedIDs, ", "))
		return fmt.Errorf("sync: %d sessions could not be saved", len(res.FailedIDs))
	}
	return nil
}
