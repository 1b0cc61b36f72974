package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/qa"
)

func newQACmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qa",
		Short: "QA review commands",
	}
	cmd.AddCommand(newQASetCmd())
	return cmd
}

func newQASetCmd() *cobra.Command {
	var (
		configPath  string
		actor       string
		role        string
		notes       string
		devFeedback string
		expected    string
	)

	cmd := &cobra.Command{
		Use:   "set <session-id> <status>",
		Short: "Set a session's QA status",
		Long: `Moves a session to unchecked, passed, issue or fixed. Reviewers may mark
passed and issue; marking fixed or writing developer feedback needs the
developer role. Entering issue alerts the configured channels.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := models.ParseQAStatus(args[1])
			if err != nil {
				return err
			}
			caps, err := qa.ParseCapabilities(role)
			if err != nil {
				return err
			}
			who, err := qa.NewActor(actor, caps...)
			if err != nil {
				return err
			}
			req := qa.Request{SessionID: args[0], Target: target, Actor: who}
			if cmd.Flags().Changed("notes") {
				req.Notes = &notes
			}
			if cmd.Flags().Changed("dev-feedback") {
				req.DevFeedback = &devFeedback
			}
			if expected != "" {
				exp, err := models.ParseQAStatus(expected)
				if err != nil {
					return err
				}
				req.Expected = &exp
			}
			return runQASet(cmd, configPath, req)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&actor, "actor", "", "identity recorded as the QA editor (required)")
	cmd.Flags().StringVar(&role, "role", "reviewer", "capabilities: reviewer, developer or both comma-separated")
	cmd.Flags().StringVar(&notes, "notes", "", "reviewer notes")
	cmd.Flags().StringVar(&devFeedback, "dev-feedback", "", "developer feedback (developer role)")
	cmd.Flags().StringVar(&expected, "expected", "", "fail unless the current status is this one")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func runQASet(cmd *cobra.Command, configPath string, req qa.Request) error {
	a, err := loadApp(configPath)
	if err != nil {
		return err
	}
	res, err := a.qa.Update(context.Background(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s: %s -> %s\n", req.SessionID, res.Previous.Label(), res.Session.QAStatus.Label())
	if res.Notified {
		fmt.Fprintf(out, "Notified: %v\n", a.notifier.Channels())
	}
	return nil
}
