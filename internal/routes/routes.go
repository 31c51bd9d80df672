package routes

import (
	"net/http"

	"dataviewer/internal/config"
	"dataviewer/internal/dataset"
	"dataviewer/internal/handlers"
	"dataviewer/internal/logger"
	"dataviewer/internal/middleware"
	"dataviewer/internal/repository"
	"dataviewer/internal/services/detect"
	"dataviewer/internal/services/export"
)

// SetupRoutes registers HTTP routes, static file serving and API endpoints,
// and wraps the mux with the request logging middleware.
func SetupRoutes(cfg *config.Config, logger *logger.Logger, rnd *handlers.Renderer,
	resolver *dataset.Resolver, loader *dataset.Loader,
	detector *detect.Service, exporter *export.Service,
	detectionRepo repository.DetectionRepository) http.Handler {

	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Pages
	mux.HandleFunc("/", handlers.IndexHandler(rnd))
	mux.HandleFunc("/viewer", handlers.ViewerHandler(rnd, resolver, loader, logger))
	mux.HandleFunc("/annotate", handlers.AnnotateHandler(rnd, resolver, logger))

	// Dataset endpoints
	mux.HandleFunc("/image", handlers.ImageHandler(resolver, loader))
	mux.HandleFunc("/api/labels", handlers.LabelsHandler(resolver, loader))
	mux.HandleFunc("/api/annotate/labels", handlers.AnnotateLabelsHandler(resolver))
	mux.HandleFunc("/api/annotate/save", handlers.AnnotateSaveHandler(resolver, logger))
	mux.HandleFunc("/api/progress", handlers.ProgressHandler(resolver, loader, logger))
	mux.HandleFunc("/api/export", handlers.ExportHandler(resolver, exporter, logger))

	// Detection endpoints
	mux.HandleFunc("/api/detect", handlers.DetectHandler(resolver, detector, detectionRepo, logger))
	mux.HandleFunc("/api/models", handlers.ModelsHandler(detector))
	mux.HandleFunc("/api/detections/recent", handlers.RecentDetectionsHandler(detectionRepo, logger))
	mux.HandleFunc("/api/detections/clear", handlers.ClearDetectionsHandler(detectionRepo, logger))

	// Log endpoints
	mux.HandleFunc("/logs/info", handlers.ShowInfoLogsHandler(cfg))
	mux.HandleFunc("/logs/warning", handlers.ShowWarningLogsHandler(cfg))
	mux.HandleFunc("/logs/error", handlers.ShowErrorLogsHandler(cfg))

	mux.HandleFunc("/logs/info/clear", handlers.ClearInfoLogsHandler(logger))
	mux.HandleFunc("/logs/warning/clear", handlers.ClearWarningLogsHandler(logger))
	mux.HandleFunc("/logs/error/clear", handlers.ClearErrorLogsHandler(logger))

	// Apply middleware
	return middleware.RequestLogger(logger, mux)
}
