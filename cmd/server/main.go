package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"figgie/internal/config"
	"figgie/internal/registry"
	"figgie/internal/transport"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	reg := registry.New(cfg.Room, log.Logger, rand.New(rand.NewSource(time.Now().UnixNano())))

	tcp := transport.NewTCPServer(cfg.TCPAddress, cfg.TCPPort, reg)
	ws := transport.NewWebSocketServer(cfg.WSAddress, cfg.WSPort, cfg.WSPath, reg)

	t, ctx := tomb.WithContext(ctx)
	t.Go(func() error { return tcp.Run(t) })
	t.Go(func() error { return ws.Run(t) })
	t.Go(func() error { return reapLoop(t, reg) })

	<-ctx.Done()
	t.Kill(nil)
	if err := t.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited with error")
	}
}

// reapLoop periodically drops empty rooms so abandoned lobbies don't leak
// goroutines (spec's idle-room reaping supplement, §6).
func reapLoop(t *tomb.Tomb, reg *registry.Registry) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-t.Dying():
			return nil
		case <-ticker.C:
			reg.ReapIdle()
		}
	}
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	switch level {
	case "Debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "Error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
}
