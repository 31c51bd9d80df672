package main

import (
	"flag"
	"fmt"
	"log"

	"dataviewer/internal/dataset"
)

// Checks a dataset from the command line without starting the server:
// reports how many manifest lines resolve to an image with a label.
func main() {
	trainFile := flag.String("train", "", "Path to a train manifest file")
	imgDir := flag.String("images", "", "Image directory (folder mode)")
	labelDir := flag.String("labels", "", "Label directory (empty with -train selects auto mapping)")
	hostRoot := flag.String("host-root", "", "Host data root mapped into the container")
	containerRoot := flag.String("container-root", "", "Container mount point of the host data root")
	verbose := flag.Bool("v", false, "Print every resolved entry")
	flag.Parse()

	resolver := dataset.NewResolver(*hostRoot, *containerRoot)

	switch {
	case *trainFile != "":
		loader := dataset.NewLoader(resolver)
		labelDirPath := ""
		if *labelDir != "" {
			labelDirPath = resolver.Resolve(*labelDir)
		}
		entries, err := loader.Load(resolver.Resolve(*trainFile), labelDirPath)
		if err != nil {
			log.Fatalf("Failed to load manifest: %v", err)
		}
		if *verbose {
			for _, entry := range entries {
				fmt.Printf("%s -> %s\n", entry.RelPath, entry.LabelPath)
			}
		}
		mode := "labels=" + labelDirPath
		if labelDirPath == "" {
			mode = "auto-mapping"
		}
		fmt.Printf("Manifest %s: %d valid entries (%s)\n", *trainFile, len(entries), mode)

	case *imgDir != "" && *labelDir != "":
		images := dataset.ListImages(resolver.Resolve(*imgDir), resolver.Resolve(*labelDir))
		if *verbose {
			for _, rel := range images {
				fmt.Println(rel)
			}
		}
		fmt.Printf("Folder %s: %d labeled images\n", *imgDir, len(images))

	default:
		log.Fatal("Either -train or both -images and -labels are required")
	}
}
