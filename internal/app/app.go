package app

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"dataviewer/internal/config"
	"dataviewer/internal/dataset"
	"dataviewer/internal/handlers"
	"dataviewer/internal/logger"
	"dataviewer/internal/repository/sqlite"
	"dataviewer/internal/routes"
	"dataviewer/internal/services/detect"
	"dataviewer/internal/services/export"
)

type App struct {
	config   *config.Config
	logger   *logger.Logger
	resolver *dataset.Resolver
	loader   *dataset.Loader
	detector *detect.Service
	exporter *export.Service
	db       *sqlite.DB
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	resolver := dataset.NewResolver(cfg.HostDataRoot, cfg.ContainerDataRoot)
	loader := dataset.NewLoader(resolver)
	detector := detect.NewService(cfg, log)
	exporter := export.NewService(cfg, log)

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &App{
		config:   cfg,
		logger:   log,
		resolver: resolver,
		loader:   loader,
		detector: detector,
		exporter: exporter,
		db:       db,
	}, nil
}

func (a *App) Run() error {
	defer a.db.Close()
	defer a.detector.Close()

	rnd, err := handlers.NewRenderer(a.config.TemplateDirectory, a.logger)
	if err != nil {
		return fmt.Errorf("failed to load templates from %s: %w", a.config.TemplateDirectory, err)
	}

	detectionRepo := sqlite.NewDetectionRepository(a.db)

	router := routes.SetupRoutes(a.config, a.logger, rnd,
		a.resolver, a.loader, a.detector, a.exporter, detectionRepo)

	fmt.Printf("🖼  CV Data Viewer\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📁 Host data root: %s\n", a.config.HostDataRoot)
	fmt.Printf("📦 Container data root: %s\n", a.config.ContainerDataRoot)
	fmt.Printf("🤖 Models: %s\n", a.config.ModelDirectory)

	return http.ListenAndServe(fmt.Sprintf(":%d", a.config.Port), router)
}
