package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"thermalvis/pkg/config"
	"thermalvis/pkg/engine"
	"thermalvis/pkg/isosurface"
	"thermalvis/pkg/raymarch"
	"thermalvis/pkg/stats"
	"thermalvis/pkg/stl"
	"thermalvis/pkg/volume"
)

// thresholdProvided reports whether -threshold was passed explicitly, so an
// explicit zero threshold is not mistaken for the flag default.
func thresholdProvided(fs *flag.FlagSet) bool {
	provided := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "threshold" {
			provided = true
		}
	})
	return provided
}

func main() {
	// Parse command line arguments
	metaPath := flag.String("meta", "", "YAML metadata file describing the volume")
	rawPath := flag.String("raw", "", "Raw byte buffer of the quantized volume")
	configPath := flag.String("config", "thermalvis.yaml", "Configuration file (optional)")
	threshold := flag.Float64("threshold", 0, "Isosurface threshold in physical units")
	usePercentile := flag.Bool("percentile-threshold", false, "Interpret no explicit threshold as the configured percentile")
	distance := flag.Float64("distance", 0, "Camera distance used for LOD tier selection")
	outputPath := flag.String("output", "surface.stl", "Output STL filename")
	previewPath := flag.String("preview", "", "Optional raymarched preview JPEG filename")
	previewSize := flag.Int("preview-size", 512, "Preview image size in pixels")
	gradientColors := flag.Bool("gradient-colors", false, "Attach gradient-magnitude scalars to the surface")
	flag.Parse()

	if *metaPath == "" || *rawPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	progress := func(format string, args ...interface{}) {
		if cfg.Output.Verbose {
			fmt.Printf(format+"\n", args...)
		}
	}

	fmt.Println("================================")
	fmt.Println("THERMALVIS - VOLUMETRIC THERMAL FIELD VISUALIZATION")
	fmt.Println("================================")

	// Step 1: Load the quantized volume
	fmt.Println("Step 1: Loading volume...")
	vol, err := volume.LoadFiles(*metaPath, *rawPath)
	if err != nil {
		log.Fatalf("Failed to load volume: %v", err)
	}
	fmt.Printf("Loaded %dx%dx%d volume, value range [%g, %g]\n",
		vol.Dims[0], vol.Dims[1], vol.Dims[2], vol.ValueRange[0], vol.ValueRange[1])

	// Step 2: Summarize the value distribution
	fmt.Println("Step 2: Summarizing value distribution...")
	summary, err := stats.Summarize(vol, 25, 50, 75, 90)
	if err != nil {
		log.Fatalf("Failed to summarize volume: %v", err)
	}
	fmt.Printf("Min: %.3f  Max: %.3f  P50: %.3f  P75: %.3f  P90: %.3f\n",
		summary.Min, summary.Max,
		summary.Percentiles[50], summary.Percentiles[75], summary.Percentiles[90])

	eng := engine.New(vol, cfg, progress)

	// Step 3: Select the LOD tier for the requested camera distance
	fmt.Println("Step 3: Selecting LOD tier...")
	if err := eng.SelectTier(*distance); err != nil {
		log.Fatalf("Failed to select LOD tier: %v", err)
	}
	active := eng.ActiveVolume()
	fmt.Printf("Active tier stride %d: %dx%dx%d\n", eng.ActiveStride(),
		active.Dims[0], active.Dims[1], active.Dims[2])

	// Step 4: Extract the threshold surface asynchronously
	fmt.Println("Step 4: Extracting isosurface...")
	thresh := *threshold
	if !thresholdProvided(flag.CommandLine) && *usePercentile {
		thresh, err = eng.SurfaceThreshold(cfg.Extraction.ThresholdPercentile)
		if err != nil {
			log.Fatalf("Failed to derive percentile threshold: %v", err)
		}
		fmt.Printf("Using P%d threshold: %.3f\n", cfg.Extraction.ThresholdPercentile, thresh)
	}

	mode := isosurface.ColorSolid
	if *gradientColors {
		mode = isosurface.ColorGradientMagnitude
	}

	startTime := time.Now()
	id, results := eng.RequestSurface(thresh, mode)
	res := <-results
	if !eng.ApplyResult(res) {
		log.Fatalf("Extraction %d failed: %v", id, res.Err)
	}
	mesh := eng.ActiveMesh()
	fmt.Printf("Extracted %d triangles in %.2f seconds\n",
		mesh.TriangleCount(), time.Since(startTime).Seconds())

	if mesh.Empty() {
		fmt.Println("No surface crosses the requested threshold; nothing to write.")
		return
	}

	// Step 5: Write the surface as binary STL
	fmt.Println("Step 5: Writing STL...")
	if err := stl.SaveToSTL(*outputPath, stl.FromMesh(mesh)); err != nil {
		log.Fatalf("Failed to save STL file: %v", err)
	}
	fmt.Printf("Surface saved to: %s\n", *outputPath)

	// Step 6: Optional raymarched preview
	if *previewPath != "" {
		fmt.Println("Step 6: Rendering raymarched preview...")
		params := eng.Params().WithWindow(summary.Percentiles[25], summary.Percentiles[90])
		eng.Frame(params)
		img := raymarch.RenderImage(active, eng.Params(), *previewSize, *previewSize)
		if err := raymarch.SaveJPEG(img, *previewPath); err != nil {
			log.Fatalf("Failed to save preview: %v", err)
		}
		fmt.Printf("Preview saved to: %s\n", *previewPath)
	}
}
