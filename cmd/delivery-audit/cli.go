package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"delivery-audit/internal/config"
	"delivery-audit/internal/data"
	imgproc "delivery-audit/internal/image"
	"delivery-audit/internal/logger"
	"delivery-audit/internal/ocr"
	"delivery-audit/internal/ocr/engine"
	"delivery-audit/internal/pipeline"
	"delivery-audit/internal/raster"
	"delivery-audit/internal/reconcile"
	"delivery-audit/internal/reference"
	"delivery-audit/internal/storage"
)

type CLI struct {
	configPath   string
	inputDir     string
	outputCSV    string
	outputJSON   string
	debugDir     string
	referenceCSV string
	engineType   string
	profile      string
	workers      int
}

func NewCLI() *CLI {
	return &CLI{}
}

func (c *CLI) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delivery-audit", flag.ExitOnError)

	fs.StringVar(&c.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&c.inputDir, "input", "", "Directory containing delivery notes (PDF or images)")
	fs.StringVar(&c.outputCSV, "output", "", "CSV results file")
	fs.StringVar(&c.outputJSON, "json", "", "JSON results file")
	fs.StringVar(&c.debugDir, "debug-dir", "", "Directory for region crops")
	fs.StringVar(&c.referenceCSV, "references", "", "CSV of ticket_id,reference_time")
	fs.StringVar(&c.engineType, "engine", "", "OCR engine type (tesseract)")
	fs.StringVar(&c.profile, "profile", "", "Time profile (permissive, strict)")
	fs.IntVar(&c.workers, "workers", 0, "Documents analysed in parallel")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}

	cfg, err := config.Read(c.configPath)
	if err != nil {
		return err
	}
	c.applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	return c.process(ctx, cfg)
}

func (c *CLI) applyFlags(cfg *config.Config) {
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Input.Dir, c.inputDir)
	override(&cfg.Output.CSV, c.outputCSV)
	override(&cfg.Output.JSON, c.outputJSON)
	override(&cfg.Output.DebugDir, c.debugDir)
	override(&cfg.Reference.CSV, c.referenceCSV)
	override(&cfg.OCR.Engine, c.engineType)
	override(&cfg.Time.Profile, c.profile)
	if c.workers > 0 {
		cfg.Workers = c.workers
	}
}

func (c *CLI) process(ctx context.Context, cfg *config.Config) error {
	runID := uuid.NewString()
	logger.Info("audit run starting", "run", runID, "engine", cfg.OCR.Engine, "workers", cfg.Workers)

	factory, err := engine.NewFactory(cfg.OCR.Engine, engine.WithRecognitionPSM(cfg.OCR.RecognitionPSM))
	if err != nil {
		return err
	}
	session := ocr.Negotiate(ctx, cfg.OCR.Engine, factory, cfg.OCR.Languages, cfg.OCR.FallbackLanguages)
	switch session.Capability {
	case ocr.CapabilityUnavailable:
		return session.Fault
	case ocr.CapabilityReduced:
		logger.Warn("running with reduced OCR languages", "languages", session.Languages)
	}
	ocrEngine := ocr.WithTimeout(session.Engine, cfg.OCRTimeout())
	defer func() {
		logger.DebugLog("Closing OCR engine")
		ocrEngine.Close()
	}()

	var minioClient *minio.Client
	if cfg.UsesMinIOInput() || cfg.Output.DebugMinIOPrefix != "" {
		minioClient, err = storage.NewMinioClient(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			return err
		}
	}

	var source pipeline.DocumentSource = pipeline.DirSource{Dir: cfg.Input.Dir}
	if cfg.UsesMinIOInput() {
		workDir := filepath.Join(cfg.Input.WorkDir, "delivery-audit-"+runID)
		defer os.RemoveAll(workDir)
		source = storage.NewMinioSource(minioClient, cfg.MinIO.Bucket, cfg.Input.MinIOPrefix, workDir)
	}

	refs, closeRefs, err := buildReferences(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRefs()

	var debug pipeline.DebugSink
	switch {
	case cfg.Output.DebugMinIOPrefix != "":
		debug = storage.NewMinioDebugSink(minioClient, cfg.MinIO.Bucket, cfg.Output.DebugMinIOPrefix)
	case cfg.Output.DebugDir != "":
		debug = pipeline.DirDebugSink{Dir: cfg.Output.DebugDir}
	}

	profile, err := data.ParseProfile(cfg.Time.Profile)
	if err != nil {
		return err
	}
	p, err := pipeline.New(pipeline.Clients{
		Engine:     ocrEngine,
		Rasterizer: raster.NewDispatcher(cfg.Raster.Pdftoppm, cfg.Raster.DPI),
		Image:      imgproc.NewImageProcessor(cfg.ROI.MinWidth, cfg.ROI.MinHeight),
		Parser:     data.NewTimeParser(profile),
		Reconciler: reconcile.NewReconciler(cfg.Time.ToleranceMinutes),
		References: refs,
		Debug:      debug,
	}, pipeline.Options{
		Anchors: cfg.Anchors,
		Radius:  cfg.ROI.Radius,
		Enhance: cfg.ROI.Enhance,
		Workers: cfg.Workers,
		RunID:   runID,
	})
	if err != nil {
		return err
	}

	// Sinks are opened before any document is analysed so an unreachable
	// output fails the run up front.
	sinks, closeSinks, err := buildSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	paths, err := source.Documents(ctx)
	if err != nil {
		return err
	}
	records := p.Run(ctx, paths)

	failures := pipeline.WriteOutputs(ctx, records, sinks...)
	for name, err := range failures {
		fmt.Printf("Error writing %s: %v\n", name, err)
	}

	printSummary(records)
	saved := savedTo(sinks, failures)
	if len(saved) == 0 {
		fmt.Printf("\nProcessing complete! Run %s, no results were saved\n", runID)
	} else {
		fmt.Printf("\nProcessing complete! Run %s, results saved to: %s\n", runID, strings.Join(saved, ", "))
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d output sinks failed", len(failures))
	}
	return nil
}

// savedTo names the sinks that wrote without error, in sink order.
func savedTo(sinks []pipeline.Sink, failures map[string]error) []string {
	var saved []string
	for _, s := range sinks {
		if _, failed := failures[s.Name()]; !failed {
			saved = append(saved, s.Name())
		}
	}
	return saved
}

// buildReferences chains the configured sources: CSV export first, then
// Redis, then Postgres.
func buildReferences(ctx context.Context, cfg *config.Config) (reference.Source, func(), error) {
	var chain reference.Chain
	var closers []func()
	closeAll := func() {
		for _, fn := range closers {
			fn()
		}
	}

	if cfg.Reference.CSV != "" {
		store, err := reference.LoadCSV(cfg.Reference.CSV)
		if err != nil {
			return nil, closeAll, err
		}
		chain = append(chain, store)
	}
	if cfg.Reference.RedisURL != "" {
		store, err := storage.NewRedisStore(ctx, cfg.Reference.RedisURL, cfg.Reference.RedisKey)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, func() { store.Close() })
		chain = append(chain, store)
	}
	if cfg.Reference.PostgresURL != "" {
		store, err := storage.NewPostgresStore(ctx, cfg.Reference.PostgresURL)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, store.Close)
		chain = append(chain, store)
	}

	if len(chain) == 0 {
		logger.Warn("no reference source configured; every found time will be ReferenceMissing")
		return reference.None{}, closeAll, nil
	}
	return chain, closeAll, nil
}

func buildSinks(ctx context.Context, cfg *config.Config) ([]pipeline.Sink, func(), error) {
	var sinks []pipeline.Sink
	closeFn := func() {}

	for _, file := range []string{cfg.Output.CSV, cfg.Output.JSON} {
		if err := checkOutputDir(file); err != nil {
			return nil, closeFn, err
		}
	}
	if cfg.Output.CSV != "" {
		sinks = append(sinks, pipeline.CSVSink{Path: cfg.Output.CSV})
	}
	if cfg.Output.JSON != "" {
		sinks = append(sinks, pipeline.JSONSink{Path: cfg.Output.JSON})
	}
	if cfg.Output.PostgresURL != "" {
		store, err := storage.NewPostgresStore(ctx, cfg.Output.PostgresURL)
		if err != nil {
			return nil, closeFn, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, closeFn, err
		}
		closeFn = store.Close
		sinks = append(sinks, pipeline.StoreSink{Label: "postgres", Store: store})
	}
	return sinks, closeFn, nil
}

// checkOutputDir fails when the directory an output file goes into is missing.
func checkOutputDir(file string) error {
	if file == "" {
		return nil
	}
	dir := filepath.Dir(file)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output directory for %s: %w", file, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output directory for %s: %s is not a directory", file, dir)
	}
	return nil
}

func printSummary(records []data.Record) {
	counts := make(map[data.Status]int)
	for _, rec := range records {
		counts[rec.Status]++
		hw := data.FormatOptional(rec.HandwrittenTime)
		if hw == "" {
			hw = "-"
		}
		fmt.Printf("%-8s %-40s %-6s %s\n", rec.TicketID, rec.Filename, hw, rec.Status)
	}

	statuses := make([]string, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	fmt.Printf("\nProcessed %d documents\n", len(records))
	for _, s := range statuses {
		fmt.Printf("  %-20s %d\n", s, counts[data.Status(s)])
	}
}
