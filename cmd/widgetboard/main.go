package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/widgetboard/internal/api/ws"
	"github.com/gosuda/widgetboard/internal/auth"
	"github.com/gosuda/widgetboard/internal/config"
	"github.com/gosuda/widgetboard/internal/content"
	"github.com/gosuda/widgetboard/internal/notify"
	"github.com/gosuda/widgetboard/internal/registration"
	"github.com/gosuda/widgetboard/internal/server"
	"github.com/gosuda/widgetboard/internal/store/postgres"
	redisstore "github.com/gosuda/widgetboard/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	level, parseErr := zerolog.ParseLevel(os.Getenv("WIDGETBOARD_LOG_LEVEL"))
	if parseErr != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv("WIDGETBOARD_LOG_FORMAT") == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	cache, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer cache.Close()

	renderer := content.NewRenderer(cache, cfg.Cable.ContentTTL, log.With().Str("component", "content").Logger())
	content.RegisterDefaults(renderer)

	// Slack first when configured; the log always catches what it cannot deliver.
	var notifier notify.Chain
	if cfg.Slack.BotToken != "" {
		notifier = append(notifier, notify.NewSlackNotifierFromToken(cfg.Slack.BotToken))
		log.Info().Msg("Slack notifications enabled")
	}
	notifier = append(notifier, notify.NewLogNotifier(log.With().Str("component", "notify").Logger()))

	authSvc := auth.NewService(store.Users(), cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	registrar := registration.NewService(store.Companies(), store.Roles(), store.Users(), notifier, registration.Options{
		JWTSecret: cfg.JWT.Secret,
		PublicURL: cfg.Server.PublicURL,
		Logger:    log.With().Str("component", "registration").Logger(),
	})

	hub := ws.NewHub(cache, renderer, store.Dashboards(), store.Widgets(), ws.Options{
		PingInterval:   cfg.Cable.PingInterval,
		RedrawRate:     cfg.Cable.RedrawRate,
		RedrawBurst:    cfg.Cable.RedrawBurst,
		OriginPatterns: originPatterns(cfg.Server.CORSOrigins),
		Logger:         log.With().Str("component", "cable").Logger(),
	})

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.New(ctx, cfg, server.Deps{
		Store:     store,
		Auth:      authSvc,
		Registrar: registrar,
		Hub:       hub,
		HealthDeps: map[string]server.Pinger{
			"postgres": store,
			"redis":    cache,
		},
		Logger: log.With().Str("component", "http").Logger(),
	})

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}

// originPatterns strips the scheme from CORS origins; websocket.Accept
// matches host patterns only.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		out = append(out, o)
	}
	return out
}
