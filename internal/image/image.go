package image

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

const (
	DefaultMinWidth  = 1500
	DefaultMinHeight = 2000
	upscaleFactor    = 2
)

type ImageProcessor struct {
	minWidth  int
	minHeight int
}

func NewImageProcessor(minWidth, minHeight int) *ImageProcessor {
	if minWidth <= 0 {
		minWidth = DefaultMinWidth
	}
	if minHeight <= 0 {
		minHeight = DefaultMinHeight
	}
	return &ImageProcessor{minWidth: minWidth, minHeight: minHeight}
}

// EnsureResolution doubles the page with a Lanczos filter when either side is
// under the floor. The input is never modified.
func (ip *ImageProcessor) EnsureResolution(img image.Image) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() >= ip.minWidth && bounds.Dy() >= ip.minHeight {
		return img
	}
	return imaging.Resize(img, bounds.Dx()*upscaleFactor, bounds.Dy()*upscaleFactor, imaging.Lanczos)
}

// EnhanceQuality prepares a region for handwriting recognition.
func (ip *ImageProcessor) EnhanceQuality(img image.Image) image.Image {
	gray := imaging.Grayscale(img)
	contrast := imaging.AdjustContrast(gray, 10)
	return imaging.Sharpen(contrast, 1.1)
}

// Crop returns a copy of rect; the result's bounds start at (0,0).
func (ip *ImageProcessor) Crop(img image.Image, rect image.Rectangle) image.Image {
	return imaging.Crop(img, rect)
}

func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("opening image %s: %w", path, err)
	}
	return img, nil
}

func Save(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating image directory: %w", err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("saving image %s: %w", path, err)
	}
	return nil
}

// DebugROIPrefix marks region crops written next to the documents.
const DebugROIPrefix = "debug_roi_"

// DebugROIName is the file name of a document's region crop.
func DebugROIName(document string) string {
	return DebugROIPrefix + filepath.Base(document) + ".png"
}
