package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/completion"
	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/dashboard"
	"github.com/zulandar/switchboard/internal/db"
	"github.com/zulandar/switchboard/internal/inquiry"
	"github.com/zulandar/switchboard/internal/lead"
	"github.com/zulandar/switchboard/internal/notify"
	"github.com/zulandar/switchboard/internal/notify/discord"
	"github.com/zulandar/switchboard/internal/notify/slack"
	"github.com/zulandar/switchboard/internal/qa"
	"github.com/zulandar/switchboard/internal/session"
	"gorm.io/gorm"
)

// app holds the services every command is built from.
type app struct {
	cfg       *config.Config
	db        *gorm.DB
	rec       *completion.Reconciler
	sessions  *session.Service
	qa        *qa.Service
	leads     *lead.Service
	inquiries *inquiry.Service
	events    *dashboard.Broker
	notifier  *notify.Multi
}

// loadApp reads the config, configures logging, connects to the database
// and wires the services.
func loadApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := setupLogging(cfg); err != nil {
		return nil, err
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, gormDB)
}

func newApp(cfg *config.Config, gormDB *gorm.DB) (*app, error) {
	a := &app{cfg: cfg, db: gormDB, events: dashboard.NewBroker()}

	var err error
	a.rec, err = completion.NewReconciler(completion.ReconcilerOpts{
		Store: completion.NewGormStore(gormDB),
		Policy: completion.Policy{
			Marker:    cfg.Completion.Marker,
			Freshness: cfg.Completion.Freshness,
		},
	})
	if err != nil {
		return nil, err
	}
	a.sessions, err = session.NewService(session.Opts{DB: gormDB, Reconciler: a.rec})
	if err != nil {
		return nil, err
	}

	a.notifier, err = buildNotifier(cfg, a.events)
	if err != nil {
		return nil, err
	}
	a.qa, err = qa.NewService(qa.ServiceOpts{
		DB:         gormDB,
		Reconciler: a.rec,
		Notifier:   a.notifier,
		BaseURL:    cfg.Server.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	var extractor *lead.Extractor
	if cfg.OpenAI.Enabled() {
		extractor = lead.NewExtractor(lead.NewLLMClient(cfg.OpenAI.BaseURL, cfg.OpenAI.Model))
		log.WithField("model", cfg.OpenAI.Model).Info("lead extraction enabled")
	}
	a.leads = lead.NewService(gormDB, extractor)
	a.inquiries = inquiry.NewService(gormDB)
	return a, nil
}

// buildNotifier fans QA issue alerts out to every configured channel plus
// the dashboard's live event stream.
func buildNotifier(cfg *config.Config, events *dashboard.Broker) (*notify.Multi, error) {
	var channels []notify.Channel
	if cfg.Notify.Slack.Enabled() {
		ch, err := slack.New(slack.Opts{BotToken: cfg.Notify.Slack.BotToken, ChannelID: cfg.Notify.Slack.ChannelID})
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	if cfg.Notify.Discord.Enabled() {
		ch, err := discord.New(discord.Opts{BotToken: cfg.Notify.Discord.BotToken, ChannelID: cfg.Notify.Discord.ChannelID})
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	if cfg.Notify.WebhookURL != "" {
		ch, err := notify.NewWebhook(cfg.Notify.WebhookURL, nil)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	if cfg.Notify.Command != "" {
		ch, err := notify.NewCommand(cfg.Notify.Command)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	if events != nil {
		channels = append(channels, events)
	}
	return notify.NewMulti(channels...), nil
}

// setupLogging applies log_level and log_format to the standard logger.
func setupLogging(cfg *config.Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.999Z07:00"})
		return nil
	}
	formatter := new(log.TextFormatter)
	formatter.TimestampFormat = "2006-01-02T15:04:05.999Z07:00"
	formatter.FullTimestamp = true
	log.SetFormatter(formatter)
	return nil
}
