package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/pokerforbots-server/internal/config"
)

// CLI flags override whatever the config file sets, the same precedence
// the teacher's ServerCmd gives its own flags over server.Config defaults.
type CLI struct {
	Config string `kong:"default='server.hcl',help='Path to an HCL config file'"`
	Addr   string `kong:"help='Listen address, overrides the config file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`

	SmallBlind      int    `kong:"help='Default room small blind, overrides the config file'"`
	BigBlind        int    `kong:"help='Default room big blind, overrides the config file'"`
	MaxPlayers      int    `kong:"help='Default room max players, overrides the config file'"`
	StartingStack   int    `kong:"help='Default room starting stack, overrides the config file'"`
	MinReadyPlayers int    `kong:"help='Players required before the default room auto-starts'"`
	StoreDriver     string `kong:"help='Persistence driver: memory or file, overrides the config file'"`
	DataDir         string `kong:"help='Data directory for the file store, overrides the config file'"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("pokerforbots-server"),
		kong.Description("No-Limit Hold'em server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	level := zerolog.InfoLevel
	if cli.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()

	cfg, err := config.Load(cli.Config)
	kctx.FatalIfErrorf(err)
	applyOverrides(cfg, cli)
	kctx.FatalIfErrorf(cfg.Validate())

	srv, err := newServer(cfg, quartz.NewReal(), logger)
	kctx.FatalIfErrorf(err)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go srv.runBackground(sigCtx)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Address()).Msg("server starting")
		serverErr <- srv.httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server exited with error")
		}
	case <-sigCtx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
		srv.persistAllRooms()
	}
}

func applyOverrides(cfg *config.Config, cli CLI) {
	if cli.Addr != "" {
		cfg.Server.Address, cfg.Server.Port = splitAddr(cli.Addr, cfg.Server.Port)
	}
	if cli.SmallBlind != 0 {
		cfg.Table.SmallBlind = cli.SmallBlind
	}
	if cli.BigBlind != 0 {
		cfg.Table.BigBlind = cli.BigBlind
	}
	if cli.MaxPlayers != 0 {
		cfg.Table.MaxPlayers = cli.MaxPlayers
	}
	if cli.StartingStack != 0 {
		cfg.Table.StartingStack = cli.StartingStack
	}
	if cli.MinReadyPlayers != 0 {
		cfg.Table.MinReadyPlayers = cli.MinReadyPlayers
	}
	if cli.StoreDriver != "" {
		cfg.Store.Driver = cli.StoreDriver
	}
	if cli.DataDir != "" {
		cfg.Store.DataDir = cli.DataDir
	}
}

// splitAddr accepts either "host:port" or ":port". An empty host becomes
// "localhost"; a port that isn't a number keeps fallbackPort, and an addr
// that doesn't split at all is returned whole as the host with fallbackPort.
func splitAddr(addr string, fallbackPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, fallbackPort
	}
	port := fallbackPort
	if parsed, err := strconv.Atoi(portStr); err == nil {
		port = parsed
	}
	if host == "" {
		host = "localhost"
	}
	return host, port
}
