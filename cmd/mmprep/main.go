package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"motion-matching-prep/internal/batch"
	"motion-matching-prep/internal/bmd"
	"motion-matching-prep/internal/config"
	"motion-matching-prep/internal/crypto"
	"motion-matching-prep/internal/log"
	"motion-matching-prep/internal/preview"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config file (.json or .yaml)")
	testN := flag.Int("test", 0, "Process only first N clips for testing")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	inputDir := flag.String("input", "", "Directory with clip .json or .bmd files (default: .)")
	outputDir := flag.String("output", "", "Output directory (default: <input>/prepared)")
	previewFmt := flag.String("preview", "", "Path preview format: webp, tga or none (default: webp)")
	facing := flag.String("facing", "", "Character facing axis: x, y or z (default: y)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (default: info)")

	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	if err := cfg.Resolve(config.Flags{
		InputDir:  *inputDir,
		OutputDir: *outputDir,
		Preview:   *previewFmt,
		Facing:    *facing,
		Workers:   *workers,
		LogLevel:  *logLevel,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)
	defer log.Sync()
	logger := log.L()

	settings, err := cfg.Prep.Settings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	bmdOpts, err := bmdOptions(cfg.BMD)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Find clips
	paths, err := batch.Discover(cfg.InputDir, cfg.OutputDir, *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	jobs, err := batch.Jobs(paths, bmdOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Limit for testing
	if *testN > 0 && *testN < len(jobs) {
		jobs = jobs[:*testN]
	}

	if len(jobs) == 0 {
		fmt.Println("No clips to process.")
		os.Exit(0)
	}

	// Print summary
	mode := ""
	if *testN > 0 {
		mode = fmt.Sprintf(" (TEST: first %d)", *testN)
	}

	fmt.Printf("Motion matching clip preparation%s\n", mode)
	fmt.Printf("Clips: %d, Workers: %d, Facing: %s\n", len(jobs), cfg.Workers, settings.Facing)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	previewFormat := cfg.Preview.Format
	if previewFormat == config.FormatNone {
		previewFormat = ""
	}

	// Run batch
	batchCfg := batch.Config{
		OutputDir:     cfg.OutputDir,
		Settings:      settings,
		BMD:           bmdOpts,
		BMDFrameRate:  cfg.BMD.FrameRate,
		PreviewFormat: previewFormat,
		Preview:       previewOptions(cfg.Preview),
		Workers:       cfg.Workers,
		Logger:        logger,
	}

	results := batch.Run(batchCfg, jobs)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed, skipped := 0, 0, 0
	var errors []batch.Result
	for _, r := range results {
		switch {
		case !r.Success:
			failed++
			errors = append(errors, r)
		case r.Skipped:
			skipped++
			success++
		default:
			success++
		}
	}

	fmt.Printf("Prepared: %d/%d (%d empty)\n", success, len(jobs), skipped)

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := min(20, len(errors))
		for _, e := range errors[:limit] {
			fmt.Printf("  %s: %s\n", e.Name, e.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, batch.ManifestName)
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		logger.Warn("create output dir", zap.Error(err))
	}
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		log.Sync()
		os.Exit(1)
	}
}

func bmdOptions(c config.BMD) (bmd.Options, error) {
	opts := bmd.Options{NameEncoding: c.NameEncoding}
	if c.XORKey != "" {
		key, err := crypto.ParseXORKey(c.XORKey)
		if err != nil {
			return opts, fmt.Errorf("bmd xor_key: %w", err)
		}
		opts.XORKey = &key
	}
	if c.LEAKey != "" {
		key, err := crypto.ParseLEAKey(c.LEAKey)
		if err != nil {
			return opts, fmt.Errorf("bmd lea_key: %w", err)
		}
		opts.LEAKey = &key
	}
	return opts, nil
}

func previewOptions(c config.Preview) preview.Options {
	return preview.Options{Size: c.Size, Supersample: c.Supersample}
}
