package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/susu3304/bbbot/internal/api"
	"github.com/susu3304/bbbot/internal/bot"
	"github.com/susu3304/bbbot/internal/commands"
	"github.com/susu3304/bbbot/internal/config"
	"github.com/susu3304/bbbot/internal/db"
	"github.com/susu3304/bbbot/internal/game"
	"github.com/susu3304/bbbot/internal/registry"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.SetupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.RunMigrations(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Restore state
	reg := registry.New(database, cfg.SuperAdmins)
	regSnap, err := database.LoadRegistry(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load registry")
	}
	reg.Restore(regSnap)

	games := game.NewService(reg, reg, database)
	sessions, err := database.LoadSessions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load sessions")
	}
	games.Restore(sessions)
	log.Info().Int("sessions", len(sessions)).Int("super_admins", len(cfg.SuperAdmins)).Msg("state restored")

	dispatcher := commands.NewDispatcher(games, reg)

	discordBot, err := bot.New(cfg.DiscordToken, dispatcher)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create discord bot")
	}
	if err := discordBot.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start discord bot")
	}

	apiServer := api.New(cfg, games, reg)

	// Either a signal or an API failure cancels gctx and stops both.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return apiServer.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down...")
		if err := discordBot.Stop(); err != nil {
			return fmt.Errorf("stop discord bot: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("shutdown with error")
	}
}
