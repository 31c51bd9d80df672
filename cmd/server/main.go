package main

import (
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"dataviewer/internal/app"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "dataviewer",
		Short:        "Local web viewer for YOLO image/label datasets",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Flags win over environment and .env defaults
			if port, _ := cmd.Flags().GetInt("port"); port > 0 {
				os.Setenv("PORT", strconv.Itoa(port))
			}
			if hostRoot, _ := cmd.Flags().GetString("host-root"); hostRoot != "" {
				os.Setenv("HOST_DATA_ROOT", hostRoot)
			}
			if containerRoot, _ := cmd.Flags().GetString("container-root"); containerRoot != "" {
				os.Setenv("CONTAINER_DATA_ROOT", containerRoot)
			}
			if modelDir, _ := cmd.Flags().GetString("model-dir"); modelDir != "" {
				os.Setenv("MODEL_DIR", modelDir)
			}

			application, err := app.NewApp()
			if err != nil {
				return err
			}
			return application.Run()
		},
	}

	rootCmd.Flags().IntP("port", "p", 0, "Listen port (default 8000, or PORT)")
	rootCmd.Flags().String("host-root", "", "Host data root mapped into the container")
	rootCmd.Flags().String("container-root", "", "Container mount point of the host data root")
	rootCmd.Flags().String("model-dir", "", "Directory containing .onnx detection models")

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
