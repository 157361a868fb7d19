package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nat1anWasTaken/paperly/internal/chat"
	"github.com/Nat1anWasTaken/paperly/internal/config"
	"github.com/Nat1anWasTaken/paperly/internal/convert"
	"github.com/Nat1anWasTaken/paperly/internal/defra"
	"github.com/Nat1anWasTaken/paperly/internal/llm"
	"github.com/Nat1anWasTaken/paperly/internal/schema"
	"github.com/Nat1anWasTaken/paperly/internal/server"
	"github.com/Nat1anWasTaken/paperly/internal/storage"
	"github.com/Nat1anWasTaken/paperly/internal/store"
	"github.com/Nat1anWasTaken/paperly/internal/summarize"
	"github.com/Nat1anWasTaken/paperly/internal/translate"
	"github.com/Nat1anWasTaken/paperly/internal/workers"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the paperly server",
	Long: `Start the paperly HTTP server and pipeline workers.

With defra.managed enabled (the default), the DefraDB container is started
alongside the server and stopped on shutdown.

Examples:
  paperly serve                    # Start on default port 8080
  paperly serve --port 3000        # Start on custom port
  paperly serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		h, err := getHome()
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfgMgr.WatchConfig()
		cfg := cfgMgr.Get()

		if serveHost != "" {
			cfg.API.Host = serveHost
		}
		if servePort != "" {
			cfg.API.Port = servePort
		}

		// DefraDB container lifecycle
		defraURL := cfg.Defra.URL
		var mgr *defra.DockerManager
		if cfg.Defra.Managed {
			mgr, err = defra.NewDockerManager(defra.DockerConfig{
				ContainerName: cfg.Defra.ContainerName,
				Image:         cfg.Defra.Image,
				DataPath:      h.DefraDataPath(),
				HostPort:      cfg.Defra.HostPort,
			})
			if err != nil {
				return err
			}
			defer mgr.Close()

			logger.Info("starting DefraDB container")
			if err := mgr.Start(ctx); err != nil {
				return fmt.Errorf("failed to start DefraDB: %w", err)
			}
			defraURL = mgr.URL()
		}

		db := defra.NewClient(defraURL)
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("DefraDB is not reachable at %s: %w", defraURL, err)
		}
		if err := schema.Initialize(ctx, db, logger); err != nil {
			return err
		}

		stores := store.New(db)

		objects, err := storage.New(ctx, cfg.S3)
		if err != nil {
			return err
		}

		completer := llm.New(cfg.OpenAI)
		converter := convert.New(h, cfg.Converter, logger)

		translator := &translate.Service{
			Blocks:       stores.Blocks,
			Translations: stores.Translations,
			LLM:          completer,
			Logger:       logger,
		}
		summaries := &summarize.Service{
			Blocks: stores.Blocks,
			LLM:    completer,
			Logger: logger,
		}
		chatter := &chat.Service{
			Papers: stores.Papers,
			Blocks: stores.Blocks,
			LLM:    completer,
			Logger: logger,
		}

		runner := workers.NewRunner(stores.Analyses, []workers.Stage{
			&workers.ExtractMarkdown{
				Analyses:  stores.Analyses,
				Storage:   objects,
				Converter: converter,
				Logger:    logger,
			},
			&workers.GenerateMetadata{
				Analyses: stores.Analyses,
				Papers:   stores.Papers,
				LLM:      completer,
				Logger:   logger,
			},
			&workers.IntoBlocks{
				Analyses: stores.Analyses,
				Blocks:   stores.Blocks,
				Logger:   logger,
			},
			&workers.GenerateQuizzes{
				Analyses:  stores.Analyses,
				Blocks:    stores.Blocks,
				LLM:       completer,
				QuizCount: cfg.Workers.QuizCount,
				Logger:    logger,
			},
		}, cfg.Workers.PollInterval, logger)

		runner.Start(ctx)
		defer runner.Stop()

		srv := server.New(server.Config{
			Host:       cfg.API.Host,
			Port:       cfg.API.Port,
			Stores:     stores,
			Uploads:    objects,
			Translator: translator,
			Summaries:  summaries,
			Chat:       chatter,
			Defra:      db,
			Logger:     logger,
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}

		if mgr != nil {
			logger.Info("stopping DefraDB container")
			if err := mgr.Stop(shutdownCtx); err != nil {
				logger.Error("failed to stop DefraDB", "error", err)
			}
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (overrides config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides config)")

	rootCmd.AddCommand(serveCmd)
}
