package ocr

import (
	"context"
	"image"
)

// Token is a piece of printed text and where it sits on the page.
type Token struct {
	Text       string
	Box        image.Rectangle
	Confidence float64
}

// Center is the midpoint of the token's box.
func (t Token) Center() image.Point {
	return image.Pt((t.Box.Min.X+t.Box.Max.X)/2, (t.Box.Min.Y+t.Box.Max.Y)/2)
}

// OCREngine is a recognition session. Its configuration is fixed when it is
// built; implementations must be safe for concurrent calls.
type OCREngine interface {
	Name() string
	// DetectText finds printed text tokens on a full page, in engine order.
	DetectText(ctx context.Context, img image.Image) ([]Token, error)
	// Recognize reads img restricted to allowlist and returns fragments in
	// engine order, which is not necessarily reading order. No text is an
	// empty slice and no error.
	Recognize(ctx context.Context, img image.Image, allowlist string) ([]string, error)
	Close() error
}

// Factory builds and verifies an engine for the given languages.
type Factory func(ctx context.Context, languages []string) (OCREngine, error)
