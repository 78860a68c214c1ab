package pipeline

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	imgproc "delivery-audit/internal/image"
	"delivery-audit/internal/logger"
)

// DebugSink receives each document's region crop for operator review. The
// pipeline never reads back what it writes, and sink errors are only logged.
type DebugSink interface {
	SaveROI(ctx context.Context, document string, img image.Image) error
}

// DirDebugSink writes debug_roi_<name>.png files into a directory.
type DirDebugSink struct {
	Dir string
}

func (s DirDebugSink) SaveROI(ctx context.Context, document string, img image.Image) error {
	path := filepath.Join(s.Dir, imgproc.DebugROIName(document))
	if err := imgproc.Save(img, path); err != nil {
		return fmt.Errorf("saving debug roi %s: %w", path, err)
	}
	return nil
}

// preparePage rasterizes the first page and brings it to the resolution floor.
// At most cap(throttle) pages are decoded at once.
func (p *Pipeline) preparePage(ctx context.Context, path string) (image.Image, func(), error) {
	select {
	case p.throttle <- struct{}{}:
	case <-ctx.Done():
		logger.DebugLog("[preparePage]: context done before acquiring semaphore for %s", path)
		return nil, nil, ctx.Err()
	}
	release := func() { <-p.throttle }
	handedOff := false
	defer func() {
		if !handedOff {
			release()
		}
	}()

	logger.DebugLog("[preparePage]: rasterizing %s (in-flight permits=%d)", path, len(p.throttle))
	page, err := p.clients.Rasterizer.FirstPage(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	normalized := p.clients.Image.EnsureResolution(page)
	if normalized != page {
		b := normalized.Bounds()
		logger.DebugLog("[preparePage]: upsampled %s to %dx%d", path, b.Dx(), b.Dy())
	}
	handedOff = true
	return normalized, release, nil
}

// prepareRegion crops the region and, when configured, enhances it.
func (p *Pipeline) prepareRegion(page image.Image, rect image.Rectangle) image.Image {
	roi := p.clients.Image.Crop(page, rect)
	if p.opts.Enhance {
		roi = p.clients.Image.EnhanceQuality(roi)
	}
	return roi
}

func (p *Pipeline) saveDebug(ctx context.Context, path string, roi image.Image) {
	if p.clients.Debug == nil {
		return
	}
	if err := p.clients.Debug.SaveROI(ctx, path, roi); err != nil {
		logger.Warn("debug roi not saved", "document", path, "error", err)
	}
}
