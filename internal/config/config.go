package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              int
	HostDataRoot      string // Path prefix valid on the deployment host
	ContainerDataRoot string // Where that prefix is mounted inside the container
	ModelDirectory    string
	TemplateDirectory string
	StaticDirectory   string
	DatabasePath      string
	LogDirectory      string
	DetectionConf     float64 // Default confidence threshold for /api/detect
	ExportQuality     int     // JPEG quality for exported images
}

func Load() *Config {
	// Optional .env next to the binary; a missing file is fine
	_ = godotenv.Load()

	return &Config{
		Port:              getEnvAsInt("PORT", 8000),
		HostDataRoot:      getEnv("HOST_DATA_ROOT", filepath.Join("/", "data", "datasets")),
		ContainerDataRoot: getEnv("CONTAINER_DATA_ROOT", filepath.Join("/", "datasets")),
		ModelDirectory:    getEnv("MODEL_DIR", filepath.Join(".", "model")),
		TemplateDirectory: getEnv("TEMPLATE_DIR", filepath.Join(".", "web", "templates")),
		StaticDirectory:   getEnv("STATIC_DIR", filepath.Join(".", "web", "static")),
		DatabasePath:      getEnv("DB_PATH", filepath.Join(".", "data", "detections.db")),
		LogDirectory:      getEnv("LOG_DIR", filepath.Join(".", "logs")),
		DetectionConf:     getEnvAsFloat("DETECTION_CONF", 0.25),
		ExportQuality:     getEnvAsInt("EXPORT_QUALITY", 95),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
