package pipeline

import (
	"context"
	"image"
	"strings"

	"delivery-audit/internal/ocr"
)

// ExtractHandwriting reads the region restricted to allowlist. It returns the
// fragments in engine order and their single-space join. Nothing recognised
// is an empty result, not an error.
func ExtractHandwriting(ctx context.Context, engine ocr.OCREngine, roi image.Image, allowlist string) ([]string, string, error) {
	fragments, err := engine.Recognize(ctx, roi, allowlist)
	if err != nil {
		return nil, "", err
	}
	return fragments, strings.Join(fragments, " "), nil
}
