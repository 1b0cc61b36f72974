package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/completion"
	"github.com/zulandar/switchboard/internal/dashboard"
	"github.com/zulandar/switchboard/internal/db"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API, webhooks and dashboard",
		Long: `Migrates the database, then serves the chat ingest API, the Messenger and
Gorgias webhooks, the QA workflow and the overview dashboard. When
completion.sync_schedule is set, a background sync corrects decayed
completion statuses on that schedule.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	a, err := loadApp(configPath)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(a.db); err != nil {
		return err
	}
	if port == 0 {
		port = a.cfg.Server.Port
	}
	log.WithField("channels", a.notifier.Channels()).Info("qa notifications configured")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if spec := a.cfg.Completion.SyncSchedule; spec != "" {
		sched, err := completion.NewScheduler(a.rec, spec)
		if err != nil {
			return err
		}
		go sched.Run(ctx)
	}

	return dashboard.Start(ctx, dashboard.StartOpts{
		RouterOpts: dashboard.RouterOpts{
			Services: dashboard.Services{
				DB:         a.db,
				Sessions:   a.sessions,
				QA:         a.qa,
				Leads:      a.leads,
				Inquiries:  a.inquiries,
				Reconciler: a.rec,
				Events:     a.events,
			},
			APIToken:    a.cfg.Server.APIToken,
			VerifyToken: a.cfg.Messenger.VerifyToken,
		},
		Port: port,
		Out:  cmd.OutOrStdout(),
	})
}
