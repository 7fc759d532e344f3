package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/resume-typesetter/internal/db"
	"github.com/jonathan/resume-typesetter/internal/library"
	"github.com/jonathan/resume-typesetter/internal/rendering"
	"github.com/jonathan/resume-typesetter/internal/resume"
	"github.com/jonathan/resume-typesetter/internal/server"
	"github.com/jonathan/resume-typesetter/internal/storage"
	"github.com/spf13/cobra"
)

var (
	servePort      int
	serveNoMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that renders résumé submissions to PDF and manages each user's fragment library.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveNoMigrate, "no-migrate", false, "Skip applying database migrations at startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	database, err := db.Connect(connectCtx, cfg.Database.URL)
	if err != nil {
		return err
	}
	if !serveNoMigrate {
		if err := database.Migrate(ctx, logger); err != nil {
			database.Close()
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	deps := server.Deps{
		Users:     database,
		Library:   library.NewService(database, logger),
		Assembler: resume.NewAssembler(rendering.NewTemplateSet(cfg.Render.TemplateDir), cfg.Render.StaticDir, logger),
		Renderer:  rendering.NewCompiler(cfg.Render.TypstBin, cfg.Render.Timeout, cfg.Render.ScratchDir),
		Pinger:    database,
	}
	if cfg.Archive.Enabled() {
		archive, err := storage.NewArchive(connectCtx, cfg.Archive)
		if err != nil {
			database.Close()
			return fmt.Errorf("failed to open PDF archive: %w", err)
		}
		deps.Archive = archive
		logger.Info("PDF archive enabled", "endpoint", cfg.Archive.Endpoint, "bucket", cfg.Archive.Bucket)
	}

	srv, err := server.New(cfg, deps, logger)
	if err != nil {
		database.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}
	srv.OnShutdown(database.Close)

	return srv.Start(ctx)
}
