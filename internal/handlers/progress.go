package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"dataviewer/internal/dataset"
	"dataviewer/internal/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // local tool, any origin
}

// progressEvent is one message on the progress socket.
type progressEvent struct {
	Status    string `json:"status"`
	Progress  int    `json:"progress,omitempty"`
	Total     int    `json:"total,omitempty"`
	Message   string `json:"message,omitempty"`
	ViewerURL string `json:"viewer_url,omitempty"`
}

// ProgressHandler streams dataset scan progress over a websocket. The client
// connects with the same query parameters as /viewer; the server runs the
// scan, reports progress and finishes with the viewer URL or an error event.
func ProgressHandler(resolver *dataset.Resolver, loader *dataset.Loader, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("Progress upgrade error: %v", err)
			return
		}
		defer conn.Close()

		q := r.URL.Query()
		mode := strings.ToLower(q.Get("mode"))
		if mode == "" {
			mode = "folder"
		}
		imgDir := q.Get("img_dir")
		labelDir := q.Get("label_dir")
		trainFile := q.Get("train_file")

		fail := func(message string) {
			_ = conn.WriteJSON(progressEvent{Status: "error", Message: message})
		}

		var total int
		switch mode {
		case "folder":
			if imgDir == "" || labelDir == "" {
				fail("Missing args for folder mode")
				return
			}
			imgDirPath := resolver.Resolve(imgDir)
			labelDirPath := resolver.Resolve(labelDir)
			if !isDir(imgDirPath) || !isDir(labelDirPath) {
				fail("Invalid paths")
				return
			}
			total = len(dataset.ListImages(imgDirPath, labelDirPath))
		case "txt":
			if trainFile == "" {
				fail("Missing train file")
				return
			}
			labelDirPath := ""
			if labelDir != "" && labelDir != "auto" {
				labelDirPath = resolver.Resolve(labelDir)
			}
			entries, err := loader.Load(resolver.Resolve(trainFile), labelDirPath)
			if err != nil {
				fail("Invalid train file")
				return
			}
			total = len(entries)
		default:
			fail("Invalid dataset mode")
			return
		}

		if total == 0 {
			message := "No images found"
			if mode == "txt" && (labelDir == "" || labelDir == "auto") {
				message += " (auto-mapping: images/ -> labels/)"
			}
			fail(message)
			return
		}

		// The scan already ran to completion above; report it as done
		if err := conn.WriteJSON(progressEvent{Status: "progress", Progress: 100, Total: total}); err != nil {
			logger.Warning("Progress write error: %v", err)
			return
		}

		params := url.Values{}
		params.Set("mode", mode)
		if labelDir != "" {
			params.Set("label_dir", labelDir)
		}
		if mode == "folder" {
			params.Set("img_dir", imgDir)
		} else {
			params.Set("train_file", trainFile)
		}

		_ = conn.WriteJSON(progressEvent{
			Status:    "done",
			Total:     total,
			ViewerURL: "/viewer?" + params.Encode(),
		})
	}
}
