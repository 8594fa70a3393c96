package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akornilov/postvault/app/assets"
	"github.com/akornilov/postvault/app/boosty"
	"github.com/akornilov/postvault/app/cfg"
	"github.com/akornilov/postvault/app/config"
	"github.com/akornilov/postvault/app/database"
	"github.com/akornilov/postvault/app/fetch"
	"github.com/akornilov/postvault/app/links"
	"github.com/akornilov/postvault/app/site"
	"github.com/akornilov/postvault/app/sponsr"
	syncer "github.com/akornilov/postvault/app/sync"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting backup", "version", appCfg.Version)

	conf, err := config.NewLoader(appCfg.ConfigPath).Load()
	if err != nil {
		slog.Error("Failed to load backup configuration", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(conf.OutputDir, 0o755); err != nil {
		slog.Error("Failed to create output directory", "error", err)
		os.Exit(1)
	}

	db, err := database.NewConnection(conf.OutputDir + "/index.db")
	if err != nil {
		slog.Error("Failed to open post index", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var failures int
	if appCfg.PostURL != "" {
		failures = downloadSinglePost(ctx, appCfg, conf, db)
	} else {
		failures = syncAll(ctx, appCfg, conf, db)
	}

	if err := site.EnsureContentLink(conf.OutputDir); err != nil {
		slog.Warn("Failed to prepare site content link", "error", err)
	}
	if err := site.WriteHugoConfig(conf.Hugo); err != nil {
		slog.Warn("Failed to write Hugo config", "error", err)
	}

	if failures > 0 {
		slog.Error("Finished with errors", "failed_sources", failures)
		os.Exit(1)
	}
	slog.Info("Done")
}

// syncAll syncs every configured source. Failures are collected per source;
// one broken author never stops the rest.
func syncAll(ctx context.Context, appCfg *cfg.Cfg, conf *config.Config, db *database.DB) int {
	if len(conf.Sources) == 0 {
		slog.Error("No sources configured, add a 'sources' section to the config")
		return 1
	}

	failures := 0
	for _, source := range conf.Sources {
		s, err := buildSyncer(appCfg, conf, db, source)
		if err != nil {
			slog.Error("Failed to set up source", "platform", source.Platform, "author", source.Author, "error", err)
			failures++
			continue
		}
		if err := s.Run(ctx); err != nil {
			slog.Error("Sync failed", "platform", source.Platform, "author", source.Author, "error", err)
			failures++
		}
	}
	return failures
}

// downloadSinglePost archives one post given its URL. Settings of a matching
// configured source apply; an unconfigured author gets defaults.
func downloadSinglePost(ctx context.Context, appCfg *cfg.Cfg, conf *config.Config, db *database.DB) int {
	if !links.IsPostURL(appCfg.PostURL) {
		slog.Error("Invalid post URL", "url", appCfg.PostURL)
		return 1
	}
	ref, err := links.ParsePostURL(appCfg.PostURL)
	if err != nil {
		slog.Error("Invalid post URL", "url", appCfg.PostURL, "error", err)
		return 1
	}

	source := config.Source{Platform: ref.Platform, Author: ref.Author, DownloadAssets: true}
	for _, src := range conf.Sources {
		if src.Platform == ref.Platform && src.Author == ref.Author {
			source = src
			break
		}
	}

	s, err := buildSyncer(appCfg, conf, db, source)
	if err != nil {
		slog.Error("Failed to set up source", "platform", source.Platform, "author", source.Author, "error", err)
		return 1
	}
	if err := s.DownloadSingle(ctx, ref.PostID); err != nil {
		slog.Error("Failed to download post", "url", appCfg.PostURL, "error", err)
		return 1
	}
	return 0
}

func buildSyncer(appCfg *cfg.Cfg, conf *config.Config, db *database.DB, source config.Source) (*syncer.Syncer, error) {
	headers, err := platformHeaders(source.Platform, conf.Auth)
	if err != nil {
		return nil, err
	}

	httpClient := fetch.NewClient(fetch.Options{
		MaxRetries:     appCfg.MaxRetries,
		BaseDelay:      time.Duration(appCfg.RetryBaseDelay) * time.Second,
		MaxDelay:       time.Duration(appCfg.RetryMaxDelay) * time.Second,
		ConnectTimeout: time.Duration(appCfg.ConnectTimeout) * time.Second,
		ReadTimeout:    time.Duration(appCfg.ReadTimeout) * time.Second,
		UserAgent:      appCfg.UserAgent,
		Headers:        headers,
	})

	var client syncer.Client
	switch source.Platform {
	case "sponsr":
		client = sponsr.NewClient(httpClient, source.Author)
	case "boosty":
		client = boosty.NewClient(httpClient, source.Author)
	default:
		return nil, fmt.Errorf("unknown platform: %s", source.Platform)
	}

	return syncer.NewSyncer(syncer.Options{
		Client:       client,
		Source:       source,
		Posts:        database.NewPostRepository(db),
		State:        database.NewSyncRepository(db),
		Assets:       assets.NewPipeline(httpClient, appCfg.WorkerCount, source.AssetTypes),
		OutputDir:    conf.OutputDir,
		SafetyChunks: appCfg.SafetyChunks,
	}), nil
}

// platformHeaders builds the auth headers of one platform from the
// configured credential files. Missing credentials are not fatal here: free
// posts stay reachable, paywalled ones fail per post.
func platformHeaders(platform string, auth config.Auth) (map[string]string, error) {
	headers := map[string]string{}

	switch platform {
	case "sponsr":
		cookie, err := config.LoadAuthFile(auth.SponsrCookieFile)
		if err != nil {
			slog.Warn("Sponsr cookie unavailable, paywalled posts will fail", "error", err)
		} else {
			headers["Cookie"] = cookie
		}
		headers["X-Requested-With"] = "XMLHttpRequest"

	case "boosty":
		cookie, err := config.LoadAuthFile(auth.BoostyCookieFile)
		if err != nil {
			slog.Warn("Boosty cookie unavailable, paywalled posts will fail", "error", err)
		} else {
			headers["Cookie"] = cookie
		}
		token, err := config.LoadAuthFile(auth.BoostyAuthFile)
		if err != nil {
			slog.Warn("Boosty token unavailable, paywalled posts will fail", "error", err)
		} else {
			headers["Authorization"] = "Bearer " + token
		}

	default:
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}

	return headers, nil
}
