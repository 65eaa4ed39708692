package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/farmalink/recetas/internal/config"
	"github.com/farmalink/recetas/internal/domain/medico"
	"github.com/farmalink/recetas/internal/domain/receta"
	"github.com/farmalink/recetas/internal/platform/db"
	"github.com/farmalink/recetas/internal/platform/middleware"
	"github.com/farmalink/recetas/internal/platform/storage"
	"github.com/farmalink/recetas/internal/platform/textextract"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "recetas-server",
		Short: "Medical prescriptions API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(medicosCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the prescriptions API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func medicosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "medicos",
		Short: "Manage the physician directory",
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load physicians from a JSON file into the directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				return fmt.Errorf("--file is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			var medicos []*medico.Medico
			if err := json.Unmarshal(data, &medicos); err != nil {
				return fmt.Errorf("parse seed file: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			client, err := db.Connect(ctx, cfg.MongoURI)
			if err != nil {
				return err
			}
			defer client.Disconnect(context.Background())

			database := client.Database(cfg.MongoDatabase)
			svc := medico.NewService(medico.NewMongoRepository(database))
			if err := svc.Cargar(ctx, medicos); err != nil {
				return err
			}

			fmt.Printf("Loaded %d physician(s).\n", len(medicos))
			return nil
		},
	}
	seedCmd.Flags().String("file", "", "Path to a JSON array of physicians")
	cmd.AddCommand(seedCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Database
	ctx := context.Background()
	client, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer client.Disconnect(context.Background())
	logger.Info().Msg("connected to database")

	database := client.Database(cfg.MongoDatabase)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		logger.Fatal().Err(err).Msg("failed to create indexes")
	}

	// Object storage and text extraction. GOOGLE_APPLICATION_CREDENTIALS
	// selects explicit credentials; otherwise ambient ADC applies.
	var opts []option.ClientOption
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	store, err := storage.NewGCSStore(ctx, cfg.StorageBucket, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create storage client")
	}
	defer store.Close()
	if cfg.StorageBucket == "" {
		logger.Warn().Msg("STORAGE_BUCKET not set; attachment operations will fail until configured")
	}

	extractor, err := textextract.NewVisionExtractor(ctx, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create text extraction client")
	}
	defer extractor.Close()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit(cfg.MaxUploadMB + 1))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout()))

	// Domain wiring
	medicoRepo := medico.NewMongoRepository(database)
	medicoSvc := medico.NewService(medicoRepo)
	medicoHandler := medico.NewHandler(medicoSvc)

	validator := receta.NewValidator(receta.ValidatorConfig{
		DNIMinDigitos: cfg.DNIMinDigitos,
		DNIMaxDigitos: cfg.DNIMaxDigitos,
		ValidezDias:   cfg.ValidezDias,
		MinTexto:      cfg.OCRMinTexto,
	}, medicoRepo)

	recetaRepo := receta.NewMongoRepository(database)
	recetaSvc := receta.NewService(recetaRepo, validator, store, extractor, cfg.SignedURLExpiry())
	recetaHandler := receta.NewHandler(recetaSvc, cfg.MaxUploadMB)

	api := e.Group("/api/v1")
	medicoHandler.RegisterRoutes(api)
	recetaHandler.RegisterRoutes(api)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(client))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
