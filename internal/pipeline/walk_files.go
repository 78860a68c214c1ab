package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	imgproc "delivery-audit/internal/image"
	"delivery-audit/internal/logger"
	"delivery-audit/internal/raster"
)

// DocumentSource enumerates the documents of one batch, in batch order.
type DocumentSource interface {
	Documents(ctx context.Context) ([]string, error)
}

// DirSource lists the delivery notes directly inside Dir in lexical order.
type DirSource struct {
	Dir string
}

func (s DirSource) Documents(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		logger.DebugLog("[walkFiles]: failed to read directory %s: %v", s.Dir, err)
		return nil, fmt.Errorf("[walkFiles]: reading directory %s: %w", s.Dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if ctx.Err() != nil {
			logger.DebugLog("[walkFiles]: context cancelled")
			return nil, ctx.Err()
		}
		name := entry.Name()
		if entry.IsDir() || isDebugArtifact(name) || !raster.IsDocument(name) {
			continue
		}
		fullPath := filepath.Join(s.Dir, name)
		logger.DebugLog("[walkFiles]: found document %s", fullPath)
		paths = append(paths, fullPath)
	}
	return paths, nil
}

// feedJobs sends every path with its batch index.
func feedJobs(ctx context.Context, paths []string, jobs chan<- job) {
	for i, path := range paths {
		select {
		case jobs <- job{index: i, path: path}:
		case <-ctx.Done():
			logger.DebugLog("[feedJobs]: context done while sending file %s", path)
			return
		}
	}
}

func isDebugArtifact(filename string) bool {
	return strings.HasPrefix(filename, imgproc.DebugROIPrefix)
}
