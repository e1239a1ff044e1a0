package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"sleeperbot/internal/bot"
	"sleeperbot/internal/config"
	"sleeperbot/internal/scheduler"
	"sleeperbot/internal/server"
	"sleeperbot/internal/settings"
	"sleeperbot/internal/sleeper"
)

func main() {
	// A missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "sleeperbot",
		Short:        "Discord bot for a Sleeper fantasy football league",
		SilenceUsage: true,
		RunE:         runBot,
	}
	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Connect to discord and serve commands and weekly posts",
		RunE:  runBot,
	})
	root.AddCommand(&cobra.Command{
		Use:   "check-env",
		Short: "Show which token and league the bot would use",
		RunE:  checkEnv,
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		log.Warn().Msg(fmt.Sprintf("Unknown LOG_LEVEL %q, using info", level))
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

func checkEnv(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Token snippet: %s\n", cfg.TokenSnippet())
	fmt.Fprintf(out, "League ID: %s\n", cfg.LeagueId)
	return nil
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return err
	}
	if len(cfg.CommissionerIds) == 0 {
		log.Warn().Msg("COMMISSIONER_IDS is empty, privileged commands are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sleeperapi := sleeper.NewSleeperApi(sleeper.Options{
		BaseUrl:          cfg.SleeperBaseUrl,
		Timeout:          cfg.HTTPTimeout,
		PlayersCachePath: cfg.PlayersCachePath,
	})
	store := settings.NewStore(cfg.ConfigPath)
	sched, err := scheduler.New(clockwork.NewRealClock(), cfg.Location)
	if err != nil {
		return err
	}

	discordBot := bot.New(bot.Config{
		Token:         cfg.DiscordToken,
		LeagueId:      cfg.LeagueId,
		GuildId:       cfg.GuildId,
		Commissioners: cfg.CommissionerIds,
		Location:      cfg.Location,
	}, store, sleeperapi, sched)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := server.ListenAndServe(ctx, cfg.MetricsAddr, server.NewRouter(discordBot.Connected)); err != nil {
				log.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	if err := discordBot.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Bot stopped")
		return err
	}
	return nil
}
