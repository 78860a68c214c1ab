package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"delivery-audit/internal/data"
	imgproc "delivery-audit/internal/image"
	"delivery-audit/internal/logger"
	"delivery-audit/internal/ocr"
	"delivery-audit/internal/raster"
	"delivery-audit/internal/reconcile"
	"delivery-audit/internal/reference"
)

const DefaultRadius = 300

// maxPagesInFlight bounds how many full-resolution pages are held at once.
const maxPagesInFlight = 2

type result[T any] struct {
	index int
	path  string
	data  T
}

type job struct {
	index int
	path  string
}

// Clients are the collaborators of one batch. The engine is built once per
// batch by the caller and only read here.
type Clients struct {
	Engine     ocr.OCREngine
	Rasterizer raster.Rasterizer
	Image      *imgproc.ImageProcessor
	Parser     *data.TimeParser
	Reconciler *reconcile.Reconciler
	References reference.Source
	Debug      DebugSink
}

type Options struct {
	Anchors []string
	Radius  int
	Enhance bool
	Workers int
	RunID   string
	Now     func() time.Time
}

type Pipeline struct {
	clients  Clients
	opts     Options
	throttle chan struct{}
}

func New(clients Clients, opts Options) (*Pipeline, error) {
	if clients.Engine == nil {
		return nil, errors.New("pipeline: OCR engine is required")
	}
	if clients.Rasterizer == nil {
		return nil, errors.New("pipeline: rasterizer is required")
	}
	if len(opts.Anchors) == 0 {
		return nil, errors.New("pipeline: at least one anchor phrase is required")
	}
	if clients.Image == nil {
		clients.Image = imgproc.NewImageProcessor(imgproc.DefaultMinWidth, imgproc.DefaultMinHeight)
	}
	if clients.Parser == nil {
		clients.Parser = data.NewTimeParser(data.ProfilePermissive)
	}
	if clients.Reconciler == nil {
		clients.Reconciler = reconcile.NewReconciler(reconcile.DefaultToleranceMinutes)
	}
	if clients.References == nil {
		clients.References = reference.None{}
	}
	if opts.Radius <= 0 {
		opts.Radius = DefaultRadius
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		clients:  clients,
		opts:     opts,
		throttle: make(chan struct{}, max(maxPagesInFlight, opts.Workers)),
	}, nil
}

// Run analyses paths and returns exactly one record per path, in the order of
// paths, whatever order the workers finish in. A failing document becomes an
// Error record and does not stop the batch.
func (p *Pipeline) Run(ctx context.Context, paths []string) []data.Record {
	logger.DebugLog("Pipeline started with %d documents, workers=%d, run=%s", len(paths), p.opts.Workers, p.opts.RunID)

	records := make([]data.Record, len(paths))
	jobs := make(chan job)
	results := make(chan result[data.Record], p.opts.Workers)

	go func() {
		defer close(jobs)
		logger.DebugLog("Starting [feedJobs] goroutine")
		feedJobs(ctx, paths, jobs)
		defer logger.DebugLog("[feedJobs] goroutine finished")
	}()

	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			logger.DebugLog("Starting [analyzeWorker] #%d", worker+1)
			p.analyzeWorker(ctx, jobs, results)
			defer logger.DebugLog("[analyzeWorker] #%d finished", worker+1)
		}(i)
	}
	go func() {
		wg.Wait()
		logger.DebugLog("All [analyzeWorker] workers finished, closing results")
		close(results)
	}()

	filled := collectResults(results, records)
	for i, ok := range filled {
		if ok {
			continue
		}
		cause := ctx.Err()
		if cause == nil {
			cause = errors.New("document was not processed")
		}
		records[i] = p.faultRecord(paths[i], fmt.Errorf("batch stopped: %w", cause))
	}

	logger.DebugLog("Pipeline finished")
	return records
}
