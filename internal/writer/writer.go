package writer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type WriteMode int

const (
	ModeReplace WriteMode = iota
	ModeAppend
)

type MapperFunc[T any] func(T) []string

type HeaderFunc[T any] func() []string

type WriteRequest[T any] struct {
	Data       []T
	OutputPath string
	Mode       WriteMode
	ResponseCh chan error
}

// encoder writes one batch of items to a path; started reports whether the
// path already holds output from this writer.
type encoder[T any] interface {
	encode(items []T, outputPath string, mode WriteMode, started bool) error
}

// FileWriter serialises all writes through one goroutine so concurrent
// callers never interleave rows in the same file.
type FileWriter[T any] struct {
	queue    chan WriteRequest[T]
	shutdown chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	started  map[string]bool // paths this writer has already written to
	mu       sync.RWMutex
	enc      encoder[T]
}

// NewCSVWriter writes header once per file, then one mapped row per item.
func NewCSVWriter[T any](mapper MapperFunc[T], header HeaderFunc[T]) *FileWriter[T] {
	return newFileWriter[T](csvEncoder[T]{mapper: mapper, header: header})
}

// NewJSONWriter keeps each file a single indented JSON array. Appending
// rewrites the array with the new items at the end.
func NewJSONWriter[T any]() *FileWriter[T] {
	return newFileWriter[T](jsonEncoder[T]{})
}

func newFileWriter[T any](enc encoder[T]) *FileWriter[T] {
	fw := &FileWriter[T]{
		queue:    make(chan WriteRequest[T], 100),
		shutdown: make(chan struct{}),
		started:  make(map[string]bool),
		enc:      enc,
	}
	fw.startWorker()
	return fw
}

func (fw *FileWriter[T]) startWorker() {
	fw.wg.Add(1)
	go func() {
		defer fw.wg.Done()
		for {
			select {
			case req := <-fw.queue:
				req.ResponseCh <- fw.writeToFileSync(req.Data, req.OutputPath, req.Mode)
			case <-fw.shutdown:
				return
			}
		}
	}()
}

func (fw *FileWriter[T]) Close() {
	fw.once.Do(func() {
		close(fw.shutdown)
		fw.wg.Wait()
	})
}

func (fw *FileWriter[T]) WriteToFile(data []T, outputPath string, overwrite ...bool) error {
	if len(overwrite) > 0 && overwrite[0] {
		return fw.WriteToFileWithMode(data, outputPath, ModeReplace)
	}
	return fw.WriteToFileWithMode(data, outputPath, ModeAppend)
}

func (fw *FileWriter[T]) WriteToFileWithMode(data []T, outputPath string, mode WriteMode) error {
	responseCh := make(chan error, 1)
	req := WriteRequest[T]{
		Data:       data,
		OutputPath: outputPath,
		Mode:       mode,
		ResponseCh: responseCh,
	}

	select {
	case fw.queue <- req:
		return <-responseCh
	case <-fw.shutdown:
		return fmt.Errorf("writer is shutting down")
	}
}

func (fw *FileWriter[T]) writeToFileSync(data []T, outputPath string, mode WriteMode) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	fw.mu.RLock()
	started := fw.started[outputPath] && mode == ModeAppend
	fw.mu.RUnlock()

	if err := fw.enc.encode(data, outputPath, mode, started); err != nil {
		return err
	}

	fw.mu.Lock()
	fw.started[outputPath] = true
	fw.mu.Unlock()
	return nil
}

type csvEncoder[T any] struct {
	mapper MapperFunc[T]
	header HeaderFunc[T]
}

func (e csvEncoder[T]) encode(items []T, outputPath string, mode WriteMode, started bool) error {
	var file *os.File
	var err error
	if started {
		file, err = os.OpenFile(outputPath, os.O_APPEND|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(outputPath)
	}
	if err != nil {
		return fmt.Errorf("opening CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if !started {
		if err := w.Write(e.header()); err != nil {
			return fmt.Errorf("writing CSV header: %w", err)
		}
	}
	for _, item := range items {
		if err := w.Write(e.mapper(item)); err != nil {
			return fmt.Errorf("writing CSV record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing CSV file: %w", err)
	}
	return nil
}

type jsonEncoder[T any] struct{}

func (jsonEncoder[T]) encode(items []T, outputPath string, mode WriteMode, started bool) error {
	all := make([]T, 0, len(items))
	if mode == ModeAppend {
		existing, err := readJSONArray[T](outputPath)
		if err != nil {
			return err
		}
		all = append(all, existing...)
	}
	all = append(all, items...)

	payload, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	if err := os.WriteFile(outputPath, append(payload, '\n'), 0644); err != nil {
		return fmt.Errorf("writing JSON file: %w", err)
	}
	return nil
}

func readJSONArray[T any](path string) ([]T, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading JSON file: %w", err)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("existing %s is not a JSON array: %w", path, err)
	}
	return items, nil
}
