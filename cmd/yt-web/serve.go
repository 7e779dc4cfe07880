package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ytget/yt-web/internal/artifact"
	"github.com/ytget/yt-web/internal/cookies"
	"github.com/ytget/yt-web/internal/download"
	"github.com/ytget/yt-web/internal/engine"
	"github.com/ytget/yt-web/internal/extract"
	"github.com/ytget/yt-web/internal/platform"
	"github.com/ytget/yt-web/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		listenAddr string
		scratchDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.settings
			if listenAddr != "" {
				s.SetListenAddr(listenAddr)
			}
			if scratchDir != "" {
				s.SetScratchDir(scratchDir)
			}
			if err := s.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServer(cmd.Context(), a)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides listen_addr)")
	cmd.Flags().StringVar(&scratchDir, "scratch-dir", "", "Directory for temporary artifacts (overrides scratch_dir)")
	return cmd
}

func runServer(ctx context.Context, a *app) error {
	s := a.settings
	logger := a.logger

	scratch, err := platform.EnsureWritableDir(s.GetScratchDir())
	if err != nil {
		return fmt.Errorf("scratch dir: %w", err)
	}

	eng := engine.New(s.GetYTDLPPath(), logger)
	if s.GetAutoInstall() {
		if err := eng.Install(ctx); err != nil {
			return err
		}
	}

	store, err := artifact.NewStore(scratch, s.GetContainer(), logger)
	if err != nil {
		return err
	}
	fetches := download.NewService(eng, store, download.Options{
		MaxParallel:   s.GetMaxParallelDownloads(),
		QueueCapacity: s.GetQueueCapacity(),
		FetchTimeout:  s.GetFetchTimeout(),
		Retention:     s.GetTaskRetention(),
	}, logger)

	srv := server.New(server.Config{
		ListenAddr:    s.GetListenAddr(),
		AdminPassword: s.GetAdminPassword(),
		RateLimit:     s.GetRateLimit(),
		RateBurst:     s.GetRateBurst(),
	}, server.Deps{
		Prober:    extract.NewAdapter(eng, s.GetContainer(), s.GetProbeTimeout(), logger),
		Fetches:   fetches,
		Artifacts: store,
		Playlists: platform.NewPlaylistParserService(),
		Cookies:   cookies.NewStore(s.GetCookieFile(), logger),
		Logger:    logger,
	})

	if s.GetAdminPassword() == "" {
		logger.Warn("admin password not set, cookie admin endpoints are disabled")
	}
	logger.Info("starting",
		"listen", s.GetListenAddr(),
		"scratch_dir", scratch,
		"container", s.GetContainer(),
		"max_parallel", s.GetMaxParallelDownloads())

	bgCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		store.RunSweeper(bgCtx, s.GetSweepInterval(), s.GetArtifactTTL())
	}()
	go func() {
		defer wg.Done()
		fetches.RunPruner(bgCtx, s.GetSweepInterval())
	}()

	err = srv.Run(ctx)
	cancel()
	wg.Wait()
	return err
}
