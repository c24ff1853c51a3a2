package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chris/wingman/internal/discord"
	"github.com/chris/wingman/internal/notify"
	"github.com/chris/wingman/internal/scheduler"
	"github.com/chris/wingman/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, webhook receiver and optional Discord bot",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	notifier := notify.New(a.db, a.cfg.DiscordWebhook, a.cfg.DiscordUserID, a.logger)

	if a.cfg.DiscordToken != "" {
		bot, err := discord.NewBot(a.cfg.DiscordToken, a.ctrl, a.db, a.logger)
		if err != nil {
			return err
		}
		defer bot.Close()
		notifier.SetDM(bot.SendDM)
	}

	if a.cfg.Notifications() {
		sched := scheduler.New(a.db, notifier, a.logger)
		if err := sched.Start(a.cfg.DigestCron); err != nil {
			return err
		}
		defer sched.Stop()
	}

	srv := server.New(a.db, a.ctrl, notifier, server.Options{
		VerifyToken: a.cfg.WebhookVerifyToken,
		AutoReplies: a.cfg.AutoGenerateReplies,
		SelfName:    a.cfg.SelfName,
	}, a.logger)

	err = srv.ListenAndServe(ctx, a.cfg.HTTPAddr)
	a.logger.Info("shutting down")
	return err
}
