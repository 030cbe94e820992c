package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/funildigital/funil/internal/api"
	"github.com/funildigital/funil/internal/config"
	"github.com/funildigital/funil/internal/db"
	"github.com/funildigital/funil/internal/digest"
	"github.com/funildigital/funil/internal/dispatch"
	"github.com/funildigital/funil/internal/email"
	sendgridmail "github.com/funildigital/funil/internal/email/sendgrid"
	"github.com/funildigital/funil/internal/notify"
	"github.com/funildigital/funil/internal/notify/discord"
	"github.com/funildigital/funil/internal/notify/slack"
	"github.com/funildigital/funil/internal/notify/whatsapp"
	"github.com/funildigital/funil/internal/ratelimit"
	"github.com/funildigital/funil/internal/roster"
	"github.com/funildigital/funil/internal/routing"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the public lead-capture API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "funil.yaml", "path to Funil config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	out := cmd.OutOrStdout()

	// Secrets may live in a .env file during development.
	godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv()
	if cfg.Security.SecretKey == "" {
		log.Print("serve: FUNIL_SECRET_KEY is not set, submissions will be rejected")
	}
	if port <= 0 {
		port = cfg.HTTP.Port
	}

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Connected to MySQL at %s:%d/%s\n", cfg.DB.Host, cfg.DB.Port, cfg.DB.Database)

	cache := roster.New(gormDB, time.Duration(cfg.Rotation.RosterTTLMin)*time.Minute, cfg.Rotation.Roles)
	if err := cache.Refresh(); err != nil {
		log.Printf("serve: initial roster load: %v", err)
	}

	limiter := ratelimit.New(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)
	resolver := routing.NewResolver(gormDB, cache, cfg.Rotation.Sentinel,
		time.Duration(cfg.Rotation.OrphanWindowMin)*time.Minute)

	mail := buildEmail(cfg)
	relay, notifier := buildNotifiers(cfg)

	dispatcher, err := dispatch.New(dispatch.Opts{
		DB:         gormDB,
		Email:      mail,
		Notifier:   notifier,
		AppName:    cfg.App.Name,
		OpsAddress: cfg.Email.OpsAddress,
	})
	if err != nil {
		return err
	}

	sched := cron.New()
	sched.AddFunc("@every 5m", func() {
		if err := cache.Refresh(); err != nil {
			log.Printf("serve: roster refresh: %v", err)
		}
		limiter.Prune()
	})
	if cfg.Digest.Enabled {
		job := &digest.Job{DB: gormDB, Email: mail, AppName: cfg.App.Name, OpsAddress: cfg.Email.OpsAddress}
		if _, err := sched.AddJob(cfg.Digest.Cron, job); err != nil {
			return fmt.Errorf("schedule digest %q: %w", cfg.Digest.Cron, err)
		}
	}
	sched.Start()
	defer sched.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	deps := api.Deps{
		Config:     cfg,
		Limiter:    limiter,
		Resolver:   resolver,
		Dispatcher: dispatcher,
	}
	if relay != nil {
		// A typed nil in the interface would defeat the handler's nil check.
		deps.Relay = relay
	}

	err = api.Start(ctx, api.StartOpts{
		Deps: deps,
		Port: port,
		Out:  out,
	})

	// Let in-flight sinks drain before the process exits.
	dispatcher.Wait()
	return err
}

// buildEmail selects the configured email provider.
func buildEmail(cfg *config.Config) email.Service {
	if cfg.Email.Provider == "sendgrid" && cfg.Email.APIKey != "" {
		return sendgridmail.NewService(cfg.Email.APIKey, cfg.Email.FromName, cfg.Email.FromAddress)
	}
	if cfg.Email.Provider == "sendgrid" {
		log.Print("serve: SENDGRID_API_KEY is not set, falling back to console email")
	}
	return &email.Console{Out: os.Stdout}
}

// buildNotifiers assembles Sink C: the WhatsApp relay plus the optional ops
// chat channel. Returns the relay separately for the fallback endpoint.
func buildNotifiers(cfg *config.Config) (*whatsapp.Client, notify.Notifier) {
	var channels notify.Multi

	var relay *whatsapp.Client
	if cfg.WhatsApp.RelayURL != "" {
		relay = whatsapp.New(cfg.WhatsApp.RelayURL, cfg.WhatsApp.RelayToken, cfg.WhatsApp.OpsNumber)
		channels = append(channels, relay)
	}

	switch cfg.Chat.Platform {
	case "slack":
		n, err := slack.New(cfg.Chat.SlackToken, cfg.Chat.SlackChannelID)
		if err != nil {
			log.Printf("serve: slack notifier disabled: %v", err)
		} else {
			channels = append(channels, n)
		}
	case "discord":
		n, err := discord.New(cfg.Chat.DiscordToken, cfg.Chat.DiscordChannelID)
		if err != nil {
			log.Printf("serve: discord notifier disabled: %v", err)
		} else {
			channels = append(channels, n)
		}
	}

	if len(channels) == 0 {
		return relay, nil
	}
	return relay, channels
}
