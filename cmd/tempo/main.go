package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mross/tempo/internal/artcache"
	"github.com/mross/tempo/internal/config"
	"github.com/mross/tempo/internal/domain"
	"github.com/mross/tempo/internal/jellyfin"
	"github.com/mross/tempo/internal/library"
	"github.com/mross/tempo/internal/log"
	"github.com/mross/tempo/internal/mpris"
	"github.com/mross/tempo/internal/playback"
	"github.com/mross/tempo/internal/player"
	"github.com/mross/tempo/internal/search"
	"github.com/mross/tempo/internal/store"
	"github.com/mross/tempo/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Parse()

	if showVersion {
		fmt.Printf("tempo %s\n", Version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.Setup(&cfg.Logging)
	if err != nil {
		// Fall back to a discard logger if file logging fails
		logger = log.Null()
	}
	slog.SetDefault(logger)

	logger.Info("starting tempo", "version", Version)

	if !cfg.IsConfigured() {
		return runSetupFlow(cfg, logger)
	}

	secureOrigin := strings.HasPrefix(cfg.Server.URL, "https:")
	gw := jellyfin.NewGateway(secureOrigin, logger)
	session := domain.Session{
		ServerURL: cfg.Server.URL,
		UserID:    cfg.Server.UserID,
		Token:     cfg.Server.Token,
	}
	client := jellyfin.NewClient(session, gw, logger)

	cacheDir := cfg.CachePath()
	if cfg.Cache.Disabled {
		cacheDir = ""
	}
	st, openErr := store.OpenOrDegrade(cacheDir, cfg.Server.URL)
	if openErr != nil {
		logger.Warn("cache store unavailable, running from memory", "error", openErr)
	}
	defer st.Close()

	art := artcache.New(client, logger,
		artcache.WithBlobStore(st),
		artcache.WithCapacity(cfg.Cache.ArtworkCapacity),
		artcache.WithMaxAge(time.Duration(cfg.Cache.ArtworkMaxDays)*24*time.Hour),
	)
	art.Sweep()

	lib := library.NewIndex(client, st, logger)

	mp, err := player.NewMPV(cfg.Player.Command, cfg.Player.Args, logger)
	if err != nil {
		return fmt.Errorf("starting audio backend: %w", err)
	}

	engine := playback.New(mp, lib, client, art, nil, logger)
	defer engine.Close()

	if adapter, err := mpris.New(engine); err != nil {
		logger.Warn("media key integration unavailable", "error", err)
	} else {
		defer adapter.Close()
	}

	searchIdx := search.NewIndex(logger)

	logout := func() error {
		lib.Invalidate()
		searchIdx.Clear()
		return config.ClearServerConfig()
	}

	model := tui.New(engine, lib, searchIdx, logout)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI")
	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// runSetupFlow handles the initial setup when not configured
func runSetupFlow(cfg *config.Config, logger *slog.Logger) error {
	fmt.Println()
	fmt.Println("Welcome to Tempo!")
	fmt.Println()

	serverURL, err := jellyfin.PromptForServerURL()
	if err != nil {
		return err
	}

	secureOrigin := strings.HasPrefix(serverURL, "https:")
	gw := jellyfin.NewGateway(secureOrigin, logger)
	flow := jellyfin.NewAuthFlow(gw, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := flow.Run(ctx, serverURL)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	cfg.Server.URL = serverURL
	cfg.Server.Token = result.Token
	cfg.Server.UserID = result.UserID
	cfg.Server.Username = result.Username

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved!")
	fmt.Println()
	fmt.Println("Run tempo again to start the application.")

	return nil
}
