package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/GerritCodeReview/plugins-gitgroups/internal/cache"
	"github.com/GerritCodeReview/plugins-gitgroups/internal/gitrepo"
	"github.com/GerritCodeReview/plugins-gitgroups/internal/groups"
	"github.com/GerritCodeReview/plugins-gitgroups/internal/notify"
	"github.com/GerritCodeReview/plugins-gitgroups/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the group membership server",
	Long:  `Starts the HTTP server with membership, suggestion and ref-updated webhook endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := gitrepo.NewManager(cfg.BasePath)
		index := groups.NewRefIndex()
		loader := groups.NewLoader(manager, index, cfg.ReloadQueueDepth, log.Logger)

		weigher := func(_ string, list *groups.MemberList) int { return list.Weight() }
		membership, err := cache.New[string, *groups.MemberList](cfg.CacheMaxWeight, weigher, loader)
		if err != nil {
			return fmt.Errorf("create membership cache: %w", err)
		}
		index.BindCache(membership)

		backend := groups.NewBackend(membership, manager, log.Logger)

		loader.Start()
		defer loader.Stop()
		log.Info().Int("queue_depth", cfg.ReloadQueueDepth).Msg("refresh worker started")

		if cfg.WatchRefs {
			watcher := notify.NewWatcher(cfg.BasePath, index, cfg.WatchDebounce, log.Logger)
			if err := watcher.Start(); err != nil {
				return fmt.Errorf("start ref watcher: %w", err)
			}
			defer watcher.Stop()
			log.Info().Str("base", cfg.BasePath).Msg("watching repository refs")
		}

		r := server.NewRouter(server.RouterOptions{
			Backend: backend,
			Index:   index,
			Logger:  log.Logger,
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			log.Info().Str("addr", cfg.ServerAddr).Msg("starting server")
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			log.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			log.Info().Msg("server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
