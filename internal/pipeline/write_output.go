package pipeline

import (
	"context"
	"fmt"
	"sync"

	"delivery-audit/internal/data"
	"delivery-audit/internal/logger"
	"delivery-audit/internal/writer"
)

// collectResults slots each result at its batch index and reports which
// indexes were filled.
func collectResults(results <-chan result[data.Record], records []data.Record) []bool {
	filled := make([]bool, len(records))
	for res := range results {
		logger.DebugLog("[collectResults]: %s -> %s", res.path, res.data.Status)
		records[res.index] = res.data
		filled[res.index] = true
	}
	return filled
}

// Sink persists the finished batch.
type Sink interface {
	Name() string
	Write(ctx context.Context, records []data.Record) error
}

type writeResult struct {
	mu       sync.Mutex
	failures map[string]error
}

func (r *writeResult) addFailure(name string, err error) {
	r.mu.Lock()
	r.failures[name] = err
	r.mu.Unlock()
}

// WriteOutputs hands the records to every sink concurrently and returns the
// failures by sink name. One failing sink does not stop the others.
func WriteOutputs(ctx context.Context, records []data.Record, sinks ...Sink) map[string]error {
	results := &writeResult{failures: make(map[string]error)}
	var wg sync.WaitGroup
	for _, sink := range sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			logger.DebugLog("[writeOutput]: writing %d records to %s", len(records), s.Name())
			if err := s.Write(ctx, records); err != nil {
				logger.DebugLog("[writeOutput]: %s failed: %v", s.Name(), err)
				results.addFailure(s.Name(), err)
				return
			}
			logger.DebugLog("[writeOutput]: %s done", s.Name())
		}(sink)
	}
	wg.Wait()
	return results.failures
}

// CSVSink replaces Path with the batch.
type CSVSink struct {
	Path string
}

func (s CSVSink) Name() string { return "csv:" + s.Path }

func (s CSVSink) Write(ctx context.Context, records []data.Record) error {
	w := writer.NewCSVWriter(data.MapCSVRecord, data.GetCSVHeader)
	defer w.Close()
	if err := w.WriteToFile(records, s.Path, true); err != nil {
		return fmt.Errorf("writing to file %s: %w", s.Path, err)
	}
	return nil
}

// JSONSink replaces Path with the batch as a JSON array.
type JSONSink struct {
	Path string
}

func (s JSONSink) Name() string { return "json:" + s.Path }

func (s JSONSink) Write(ctx context.Context, records []data.Record) error {
	w := writer.NewJSONWriter[data.Record]()
	defer w.Close()
	if err := w.WriteToFile(records, s.Path, true); err != nil {
		return fmt.Errorf("writing to file %s: %w", s.Path, err)
	}
	return nil
}

// RecordStore is a database that keeps audit records.
type RecordStore interface {
	SaveRecords(ctx context.Context, records []data.Record) error
}

type StoreSink struct {
	Label string
	Store RecordStore
}

func (s StoreSink) Name() string { return s.Label }

func (s StoreSink) Write(ctx context.Context, records []data.Record) error {
	return s.Store.SaveRecords(ctx, records)
}
