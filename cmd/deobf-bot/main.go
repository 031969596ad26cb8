package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"deobf-bot/internal/bot"
	"deobf-bot/internal/config"
	"deobf-bot/internal/deobf"
	"deobf-bot/internal/health"
	"deobf-bot/internal/ledger"
	"deobf-bot/internal/pipeline"
	"deobf-bot/internal/staging"
	"deobf-bot/internal/store"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "deobf-bot",
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", "err", err)
	}
	if err := cfg.RequireToken(); err != nil {
		logger.Fatal("load config", "err", err)
	}

	fileStore, err := ledger.NewFileStore(cfg.DataDir)
	if err != nil {
		logger.Fatal("open ledger store", "dir", cfg.DataDir, "err", err)
	}
	accounts := ledger.New(fileStore)

	lock, err := store.AcquireLock(cfg.DataDir)
	if err != nil {
		logger.Fatal("another instance owns the data directory", "err", err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("release data dir lock", "err", err)
		}
	}()

	stager, err := staging.New(cfg.StagingDir)
	if err != nil {
		logger.Fatal("open staging dir", "dir", cfg.StagingDir, "err", err)
	}

	locator := deobf.Locator{BinDir: cfg.BinDir, ProjectDir: cfg.ProjectDir}
	report := locator.DependencyStatus()
	if !report.ToolFound {
		logger.Warn("deobfuscator not found yet, jobs will fail until it is built",
			"bin_dir", cfg.BinDir, "project_dir", cfg.ProjectDir)
	} else {
		logger.Info("deobfuscator resolved", "path", report.ToolPath)
	}

	jobs := pipeline.New(accounts, stager, locator, logger)
	jobs.HardTimeout = cfg.ToolTimeout
	jobs.URLRetention = cfg.URLRetention

	b, err := bot.New(bot.Options{
		Token:       cfg.DiscordToken,
		Prefix:      cfg.CommandPrefix,
		GuildID:     cfg.GuildID,
		AdminRoleID: cfg.AdminRoleID,
	}, accounts, jobs, logger)
	if err != nil {
		logger.Fatal("create bot", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("health endpoint listening", "addr", cfg.HealthAddr)
		if err := health.Serve(ctx, cfg.HealthAddr); err != nil {
			logger.Error("health endpoint stopped", "err", err)
		}
	}()

	logger.Info("starting", "data_dir", cfg.DataDir, "staging_dir", cfg.StagingDir)
	if err := b.Run(ctx); err != nil {
		// Plain Error instead of Fatal so the lock release defer still runs.
		logger.Error("bot stopped", "err", err)
		return
	}
	logger.Info("shut down cleanly")
}
