// Package raster turns a delivery-note document into the raster of its first
// page.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	imgproc "delivery-audit/internal/image"
	"delivery-audit/internal/logger"
)

const DefaultDPI = 300

type Rasterizer interface {
	// FirstPage returns page one of the document at path.
	FirstPage(ctx context.Context, path string) (image.Image, error)
}

// PopplerRasterizer renders PDFs with poppler's pdftoppm.
type PopplerRasterizer struct {
	binary string
	dpi    int
}

func NewPopplerRasterizer(binary string, dpi int) *PopplerRasterizer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &PopplerRasterizer{binary: binary, dpi: dpi}
}

func (p *PopplerRasterizer) FirstPage(ctx context.Context, path string) (image.Image, error) {
	tmpDir, err := os.MkdirTemp("", "delivery-raster-*")
	if err != nil {
		return nil, fmt.Errorf("creating raster temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	args := []string{
		"-f", "1",
		"-l", "1",
		"-r", strconv.Itoa(p.dpi),
		"-png",
		"-singlefile",
		path,
		prefix,
	}

	cmd := exec.CommandContext(ctx, p.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.DebugLog("[rasterize]: %s %s", p.binary, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed for %s: %w (%s)", p.binary, path, err, strings.TrimSpace(stderr.String()))
	}
	return imgproc.Open(prefix + ".png")
}

// ImageRasterizer handles documents that are already images.
type ImageRasterizer struct{}

func (ImageRasterizer) FirstPage(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return imgproc.Open(path)
}

// Dispatcher picks a rasterizer by file extension.
type Dispatcher struct {
	PDF   Rasterizer
	Image Rasterizer
}

func NewDispatcher(pdftoppm string, dpi int) *Dispatcher {
	return &Dispatcher{
		PDF:   NewPopplerRasterizer(pdftoppm, dpi),
		Image: ImageRasterizer{},
	}
}

func (d *Dispatcher) FirstPage(ctx context.Context, path string) (image.Image, error) {
	switch {
	case IsPDF(path):
		return d.PDF.FirstPage(ctx, path)
	case IsImageFile(path):
		return d.Image.FirstPage(ctx, path)
	default:
		return nil, fmt.Errorf("unsupported document type: %s", filepath.Ext(path))
	}
}

func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func IsImageFile(path string) bool {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "jpg", "jpeg", "png", "tif", "tiff", "bmp":
		return true
	}
	return false
}

// IsDocument reports whether path is something the dispatcher can rasterize.
func IsDocument(path string) bool {
	return IsPDF(path) || IsImageFile(path)
}
